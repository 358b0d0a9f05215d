// Package app assembles the HTTP server: services, handlers, routes and
// the serve lifecycle.
package app

import (
	"context"
	"errors"
	"time"

	"campus_market/config"
	"campus_market/internal/cart"
	"campus_market/internal/catalog"
	"campus_market/internal/chat"
	"campus_market/internal/feed"
	"campus_market/internal/metrics"
	"campus_market/internal/orders"
	"campus_market/internal/search"
	"campus_market/internal/storage"
	"campus_market/internal/verification"
	"campus_market/internal/ws"
	"campus_market/middleware"
	"campus_market/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived service. Services are built once here and
// handed to the handlers that need them.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Store   storage.Store
	Tokens  *utils.TokenIssuer
	Hub     *ws.Hub

	Search       *search.Service
	Catalog      *catalog.Service
	Cart         *cart.Service
	Orders       *orders.Service
	Chat         *chat.Service
	Feed         *feed.Service
	Verification *verification.Service

	Fiber *fiber.App
}

// New wires the application. store serves uploads; log may be nil.
func New(cfg *config.Config, db *gorm.DB, store storage.Store, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	m := metrics.New()
	hub := ws.NewHub(log.Named("ws"), m)
	searchSvc := search.NewService(db, log.Named("search"))

	a := &App{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Metrics: m,
		Store:   store,
		Tokens:  utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiration),
		Hub:     hub,

		Search:       searchSvc,
		Catalog:      catalog.NewService(db, searchSvc, log.Named("catalog")),
		Cart:         cart.NewService(db),
		Orders:       orders.NewService(db, orders.NewFeeTable(cfg.DeliveryFeeCampus, cfg.DeliveryFeeCourier), hub, log.Named("orders"), m),
		Chat:         chat.NewService(db),
		Feed:         feed.NewService(db),
		Verification: verification.NewService(db, log.Named("verification")),
	}

	a.Fiber = fiber.New(fiber.Config{
		AppName:      "Campus Market",
		ServerHeader: "Campus Market Server/1.0",
		BodyLimit:    cfg.MaxUploadBytes + 1<<20,
		ErrorHandler: middleware.ErrorHandler(log),
	})
	middleware.SetupMiddleware(a.Fiber, cfg, log.Named("http"), m)
	a.routes()
	return a
}

// Run serves HTTP and the websocket hub until ctx is cancelled, then shuts
// both down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.Log.Info("server starting", zap.String("addr", a.Config.Addr()))
		if err := a.Fiber.Listen(a.Config.Addr()); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Log.Info("server shutting down")
		return a.Fiber.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
