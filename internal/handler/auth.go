package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/video-share-backend/internal/config"
	"github.com/iliyamo/video-share-backend/internal/middleware"
	"github.com/iliyamo/video-share-backend/internal/model"
	"github.com/iliyamo/video-share-backend/internal/queue"
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/service"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

// AuthHandler bundles dependencies for the account/session endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *service.SessionManager
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, s *service.SessionManager) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type changePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"accessToken"`
	Refresh tokenPart  `json:"refreshToken"`
}

// Register creates an account from a multipart form (username, email,
// fullName, password plus optional avatar/coverImage files) and returns
// the created user. It does not start a session; clients log in next.
func (h *AuthHandler) Register(c echo.Context) error {
	username := strings.ToLower(strings.TrimSpace(c.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	fullName := strings.TrimSpace(c.FormValue("fullName"))
	password := c.FormValue("password")
	if username == "" || email == "" || fullName == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email, fullName and password are required"})
	}

	avatarURL := ""
	if fh, err := c.FormFile("avatar"); err == nil {
		url, err := utils.SaveImage(fh, h.Cfg.UploadDir)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "avatar upload failed"})
		}
		avatarURL = url
	}
	coverURL := ""
	if fh, err := c.FormFile("coverImage"); err == nil {
		url, err := utils.SaveImage(fh, h.Cfg.UploadDir)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cover image upload failed"})
		}
		coverURL = url
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, username, email, fullName, password, avatarURL, coverURL, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// Best effort, off the request path; registration succeeds even when
	// the broker is down.
	go func() {
		_ = service.PublishUserRegistered(context.Background(), queue.UserRegisteredEvent{
			UserID:       uid,
			Username:     username,
			Email:        email,
			FullName:     fullName,
			RegisteredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u.Sanitized()})
}

// Login verifies credentials, issues a token pair, persists the refresh
// token and sets both cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user does not exist"})
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
	}

	setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, authResp{
		User:    u,
		Access:  tokenPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
		Refresh: tokenPart{Token: pair.Refresh.Token, Expires: pair.Refresh.Exp},
	})
}

// Refresh rotates the session: the presented refresh token (cookie first,
// JSON body as fallback) is exchanged for a brand-new pair and the old
// one stops working immediately.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(middleware.RefreshCookieName); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var req refreshReq
		_ = c.Bind(&req)
		raw = strings.TrimSpace(req.RefreshToken)
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Sessions.Refresh(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrTokenExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token expired"})
		case errors.Is(err, service.ErrInvalidToken):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user does not exist"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
		}
	}

	setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, authResp{
		User:    u,
		Access:  tokenPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
		Refresh: tokenPart{Token: pair.Refresh.Token, Expires: pair.Refresh.Exp},
	})
}

// Logout clears the stored refresh token and both cookies. Protected; the
// identity comes from the access token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Logout(ctx, middleware.CurrentUserID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	clearTokenCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ChangePassword verifies the old password before setting the new one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "oldPassword/newPassword required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.ChangePassword(ctx, middleware.CurrentUserID(c), req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user does not exist"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// setTokenCookies writes both auth cookies with the flags every
// token-issuing response must carry.
func setTokenCookies(c echo.Context, pair service.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookieName,
		Value:    pair.Access.Token,
		Path:     "/",
		Expires:  pair.Access.Exp,
		HttpOnly: true,
		Secure:   true,
	})
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    pair.Refresh.Token,
		Path:     "/",
		Expires:  pair.Refresh.Exp,
		HttpOnly: true,
		Secure:   true,
	})
}

// clearTokenCookies expires both auth cookies.
func clearTokenCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessCookieName, middleware.RefreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
		})
	}
}
