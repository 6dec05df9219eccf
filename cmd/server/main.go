package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/video-share-backend/internal/config"
	"github.com/iliyamo/video-share-backend/internal/database"
	"github.com/iliyamo/video-share-backend/internal/handler"
	"github.com/iliyamo/video-share-backend/internal/queue"
	"github.com/iliyamo/video-share-backend/internal/repository"
	"github.com/iliyamo/video-share-backend/internal/router"
	"github.com/iliyamo/video-share-backend/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	channels := repository.NewChannelRepo(db)
	sessions := service.NewSessionManager(cfg, users)

	// Nil when Redis is unreachable; rate limiting and caching degrade to
	// pass-through middleware.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	// Signup audit consumer; keeps its own reconnect loop.
	go func() {
		if err := queue.StartSignupConsumer(); err != nil {
			log.Printf("signup consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, sessions),
		Profile: handler.NewProfileHandler(cfg, users),
		Channel: handler.NewChannelHandler(channels),
		Users:   users,
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
