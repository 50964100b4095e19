package main

import (
	"context"
	"log"

	"github.com/Itproger-it/url-short/config"
	"github.com/Itproger-it/url-short/db"
	authhandler "github.com/Itproger-it/url-short/internal/auth/handler"
	authrepo "github.com/Itproger-it/url-short/internal/auth/repository/postgres"
	authservice "github.com/Itproger-it/url-short/internal/auth/service"
	"github.com/Itproger-it/url-short/internal/link/cache"
	linkhandler "github.com/Itproger-it/url-short/internal/link/handler"
	linkrepo "github.com/Itproger-it/url-short/internal/link/repository/postgres"
	linkservice "github.com/Itproger-it/url-short/internal/link/service"
	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if err := db.ApplyMigrations(cfg.DBURL); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	authRepo := authrepo.NewPostgresRepository(pool)
	tokenService, err := authservice.NewTokenService(cfg)
	if err != nil {
		log.Fatalf("Failed to build token service: %v", err)
	}
	authService := authservice.NewAuthService(authRepo, authRepo, tokenService)
	authHandler := authhandler.NewAuthHandler(authService)
	authMiddleware := authhandler.NewAuthMiddleware(tokenService, authRepo, authRepo)

	linkRepo := linkrepo.NewPostgresRepository(pool)
	linkCache := cache.NewRedisCache(cfg.RedisAddr)
	linkService, err := linkservice.NewLinkService(linkRepo, linkCache)
	if err != nil {
		log.Fatalf("Failed to build link service: %v", err)
	}
	linkHandler := linkhandler.NewLinkHandler(linkService, cfg.BaseURL)

	app := fiber.New()
	authhandler.RegisterRoutes(app, authHandler, authMiddleware)
	linkhandler.RegisterRoutes(app, linkHandler, authMiddleware)

	log.Printf("Starting %s server on :%s", cfg.Env, cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
