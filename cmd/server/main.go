package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinetix/ticketing/internal/config"
	"github.com/cinetix/ticketing/internal/database"
	"github.com/cinetix/ticketing/internal/handler"
	"github.com/cinetix/ticketing/internal/middleware"
	"github.com/cinetix/ticketing/internal/queue"
	"github.com/cinetix/ticketing/internal/repository"
	"github.com/cinetix/ticketing/internal/router"
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

	// Repositories share the single pool.
	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	screens := repository.NewScreenRepo(db)
	shows := repository.NewShowRepo(db)
	seats := repository.NewShowSeatRepo(db)
	tickets := repository.NewTicketRepo(db)
	requests := repository.NewMovieRequestRepo(db)

	brokerURL := queue.BrokerURL()
	pub, err := queue.NewPublisher(brokerURL, cfg.HoldTTL)
	if err != nil {
		log.Fatalf("broker: %v", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The coordinator owns every seat state transition; the HTTP layer
	// only enqueues.  The notifier turns ticket events into log entries.
	coord := queue.NewCoordinator(seats, tickets, pub, cfg.HoldTTL, cfg.ReservedSeatsCap)
	go func() {
		if err := coord.Run(ctx, brokerURL); err != nil && ctx.Err() == nil {
			log.Printf("coordinator stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartTicketNotifier(brokerURL); err != nil {
			log.Printf("ticket notifier stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	// Redis is optional: when unavailable, rate limiting and response
	// caching degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users),
		Booking:  handler.NewBookingHandler(shows, seats, pub, cfg.ReservedSeatsCap),
		Browse:   handler.NewBrowseHandler(movies, shows, screens, seats),
		Movies:   handler.NewMovieHandler(movies),
		Screens:  handler.NewScreenHandler(screens),
		Shows:    handler.NewShowHandler(shows, movies, screens, pub),
		Tickets:  handler.NewTicketHandler(tickets),
		Requests: handler.NewMovieRequestHandler(requests),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, hold_ttl=%s, reserved_cap=%d)",
		addr, cfg.Env, cfg.HoldTTL, cfg.ReservedSeatsCap)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
