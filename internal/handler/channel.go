package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/video-share-backend/internal/middleware"
	"github.com/iliyamo/video-share-backend/internal/repository"
)

// ChannelHandler serves the two aggregation read endpoints: the channel
// page for any username and the viewer's own watch history.
type ChannelHandler struct {
	Channels *repository.ChannelRepo
}

func NewChannelHandler(ch *repository.ChannelRepo) *ChannelHandler {
	return &ChannelHandler{Channels: ch}
}

// GetChannel returns the channel profile for :username, with subscriber
// counts computed in the database and the viewer's subscription state.
func (h *ChannelHandler) GetChannel(c echo.Context) error {
	username := strings.ToLower(strings.TrimSpace(c.Param("username")))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Channels.GetProfile(ctx, username, middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "channel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"channel": p})
}

// WatchHistory returns the viewer's watch history, newest first. The
// optional ?limit query parameter caps the page size (default and max 100).
func (h *ChannelHandler) WatchHistory(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Channels.WatchHistory(ctx, middleware.CurrentUserID(c), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": entries})
}
