package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/oklog/run"

	"github.com/lodgekeep/lodgekeep/booking"
	"github.com/lodgekeep/lodgekeep/config"
	"github.com/lodgekeep/lodgekeep/engine"
	"github.com/lodgekeep/lodgekeep/events"
	"github.com/lodgekeep/lodgekeep/payment"
	"github.com/lodgekeep/lodgekeep/policy"
	"github.com/lodgekeep/lodgekeep/pricing"
	"github.com/lodgekeep/lodgekeep/room"
	"github.com/lodgekeep/lodgekeep/storage"
)

func main() {
	cfg := config.Load()

	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "app", cfg.AppName)

	db, err := storage.Connect(cfg.DBPath)
	if err != nil {
		level.Error(logger).Log("msg", "connect database", "err", err)
		os.Exit(1)
	}
	if err := storage.Migrate(db); err != nil {
		level.Error(logger).Log("msg", "migrate database", "err", err)
		os.Exit(1)
	}
	if err := storage.Seed(db); err != nil {
		level.Error(logger).Log("msg", "seed database", "err", err)
		os.Exit(1)
	}

	var publisher *events.Publisher
	if cfg.AmqpURL != "" {
		publisher, err = events.Connect(cfg.AmqpURL, log.With(logger, "component", "events"))
		if err != nil {
			level.Error(logger).Log("msg", "connect broker", "err", err)
			os.Exit(1)
		}
	}

	roomRepo := room.NewRepository(db)
	ledger := room.NewLedger(db, roomRepo, log.With(logger, "component", "inventory"))
	pricingRepo := pricing.NewRepository(db)
	calculator := pricing.NewCalculator(roomRepo, pricingRepo, cfg.Currency)
	policyRepo := policy.NewRepository(db)
	payLedger := payment.NewLedger(db, log.With(logger, "component", "payments"))
	bookingRepo := booking.NewRepository(db)

	deps := booking.Deps{
		DB:       db,
		Log:      log.With(logger, "component", "bookings"),
		Rooms:    ledger,
		Types:    roomRepo,
		Pricer:   calculator,
		Policies: policyRepo,
		Payments: payLedger,
		Coupons:  pricingRepo,
		Currency: cfg.Currency,
	}
	if publisher != nil {
		deps.Events = publisher
	}
	svc := booking.NewService(deps)

	validate := validator.New()
	bookingHandler := booking.NewHandler(svc, bookingRepo, ledger, calculator, payLedger, validate)
	roomHandler := room.NewHandler(ledger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: engine.ErrorHandler,
	})
	app.Use(cors.New())
	app.Use(requestLogger(log.With(logger, "component", "http")))

	registerRoutes(app, bookingHandler, roomHandler)

	var g run.Group
	g.Add(func() error {
		level.Info(logger).Log("msg", "starting HTTP server", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	}, func(error) {
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			level.Error(logger).Log("msg", "shutdown HTTP server", "err", err)
		}
	})
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	if err := g.Run(); err != nil {
		level.Info(logger).Log("msg", "stopped", "reason", err)
	}
	if publisher != nil {
		publisher.Close()
	}
}

func requestLogger(l log.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		level.Info(l).Log(
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
