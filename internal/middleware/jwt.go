package middleware // middleware provides reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/video-share-backend/internal/model"
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

// AccessCookieName and RefreshCookieName are the cookies the auth
// handlers set on every token-issuing response and clear on logout.
const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// Context keys under which the authenticated identity is stored.
const (
	userKey   = "user"
	userIDKey = "user_id"
)

// UserLoader resolves a token subject to a full user record. Implemented
// by repository.UserRepo.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RequireAuth gates every protected route. The access token is taken from
// the accessToken cookie first, then from an Authorization: Bearer
// header. The token must verify against the access secret and its subject
// must still resolve to an existing user; the resolved user (with
// password hash and refresh token blanked) is attached to the context for
// handlers. Anything else short-circuits with 401 before the handler
// runs, keeping the verifier's expired/invalid distinction in the message
// so clients know whether to re-authenticate.
func RequireAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			id, err := utils.UserID(claims.RegisteredClaims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, id)
			if err != nil {
				// The account may have been deleted after the token was
				// issued; a valid signature is not enough on its own.
				if errors.Is(err, repository.ErrUserNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}

			c.Set(userKey, u.Sanitized())
			c.Set(userIDKey, u.ID)
			return next(c)
		}
	}
}

// tokenFromRequest prefers the cookie over the Authorization header.
func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// CurrentUser returns the authenticated user attached by RequireAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

// CurrentUserID returns the authenticated user's id, or zero when the
// route is not behind RequireAuth.
func CurrentUserID(c echo.Context) uint64 {
	id, _ := c.Get(userIDKey).(uint64)
	return id
}
