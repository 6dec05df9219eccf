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
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/utils"
)

// ProfileHandler serves the authenticated user's own profile: reading it
// and updating details, avatar and cover image. Password and refresh
// token are never part of any response here.
type ProfileHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewProfileHandler(cfg config.Config, u *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Cfg: cfg, Users: u}
}

type updateDetailsReq struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Me returns the authenticated user as resolved by the auth middleware.
func (h *ProfileHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// UpdateDetails changes full name and/or email. Fields left empty keep
// their current value; sending neither is an error.
func (h *ProfileHandler) UpdateDetails(c echo.Context) error {
	var req updateDetailsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" && req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "fullName or email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := middleware.CurrentUserID(c)
	if err := h.Users.UpdateDetails(ctx, id, req.FullName, req.Email); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return h.respondWithUser(c, id)
}

// UpdateAvatar replaces the avatar from a multipart "avatar" file.
func (h *ProfileHandler) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage replaces the cover image from a multipart "coverImage" file.
func (h *ProfileHandler) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage", h.Users.UpdateCoverImage)
}

func (h *ProfileHandler) updateImage(c echo.Context, field string, store func(context.Context, uint64, string) error) error {
	fh, err := c.FormFile(field)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": field + " file required"})
	}
	url, err := utils.SaveImage(fh, h.Cfg.UploadDir)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": field + " upload failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := middleware.CurrentUserID(c)
	if err := store(ctx, id, url); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return h.respondWithUser(c, id)
}

func (h *ProfileHandler) respondWithUser(c echo.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.Sanitized()})
}
