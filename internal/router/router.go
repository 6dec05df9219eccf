package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/video-share-backend/internal/config"
	"github.com/iliyamo/video-share-backend/internal/handler"
	"github.com/iliyamo/video-share-backend/internal/middleware"
)

// Handlers groups everything RegisterRoutes needs to wire the API.
type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Channel *handler.ChannelHandler
	Users   middleware.UserLoader
}

// RegisterRoutes wires the whole HTTP surface. Unauthenticated session
// operations live under /v1/auth behind the rate limiter; everything
// under /v1 runs the access-token gate first. Uploaded images are served
// statically from /uploads.
func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.Static("/uploads", cfg.UploadDir)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Operations that create or exchange credentials. No session required;
	// rate limited to slow down guessing.
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	// Refresh rotates the token pair; the old refresh token stops working.
	g.POST("/refresh", h.Auth.Refresh)

	// Everything below requires a valid access token; the middleware
	// resolves it to a live user before any handler runs.
	auth := e.Group("/v1", middleware.RequireAuth(cfg.AccessSecret, h.Users))
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/change-password", h.Auth.ChangePassword)

	auth.GET("/me", h.Profile.Me)
	auth.PATCH("/me", h.Profile.UpdateDetails)
	auth.PATCH("/me/avatar", h.Profile.UpdateAvatar)
	auth.PATCH("/me/cover", h.Profile.UpdateCoverImage)

	// Read models; cached per viewer when Redis is up.
	auth.GET("/channels/:username", h.Channel.GetChannel, cache)
	auth.GET("/me/history", h.Channel.WatchHistory, cache)
}
