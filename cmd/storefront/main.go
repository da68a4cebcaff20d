package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teamwear/storefront/internal/cart"
	catalogsqlite "github.com/teamwear/storefront/internal/catalog/sqlite"
	"github.com/teamwear/storefront/internal/checkout"
	"github.com/teamwear/storefront/internal/config"
	"github.com/teamwear/storefront/internal/httpx"
	"github.com/teamwear/storefront/internal/notify"
	ordersqlite "github.com/teamwear/storefront/internal/order/sqlite"
	logsqlite "github.com/teamwear/storefront/internal/orderlog/sqlite"
	"github.com/teamwear/storefront/internal/payment/hosted"
	"github.com/teamwear/storefront/internal/pkg/telemetry"
	"github.com/teamwear/storefront/internal/reconcile"
)

func main() {
	telemetry.InitLogger("storefront")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, "storefront")
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	cfg := config.Load()

	orders, err := ordersqlite.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open order database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer orders.Close()

	orderLog, err := logsqlite.New(orders.DB())
	if err != nil {
		slog.Error("failed to initialise order log", "error", err)
		os.Exit(1)
	}

	products, err := catalogsqlite.New(orders.DB())
	if err != nil {
		slog.Error("failed to initialise catalog", "error", err)
		os.Exit(1)
	}

	var cartStore cart.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Error("failed to reach redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cartStore = cart.NewRedisStore(client)
		slog.Info("cart store: redis", "addr", cfg.RedisAddr)
	} else {
		cartStore = cart.NewMemoryStore()
		slog.Warn("cart store: in-process memory, carts do not survive restarts")
	}

	var notifier notify.Gateway = notify.LogGateway{}
	if cfg.SMTPAddr != "" && cfg.NotifyTo != "" {
		notifier = notify.NewSMTPGateway(cfg.SMTPAddr, nil, cfg.SMTPFrom, cfg.NotifyTo)
		slog.Info("notifications: smtp", "addr", cfg.SMTPAddr, "to", cfg.NotifyTo)
	}

	processor := hosted.NewClient(cfg.PaymentAPIBase, cfg.PaymentAPIKey)

	cartSvc := cart.NewService(cartStore, products)
	coordinator := checkout.NewCoordinator(cartSvc, products, orders, processor, orderLog,
		cfg.SuccessURL(), cfg.CancelURL())
	reconciler := reconcile.NewService(orders, processor, notifier, orderLog)

	handler := httpx.NewHandler(cartSvc, coordinator, reconciler,
		cfg.WebhookSecret, cfg.ThankYouURL, cfg.CatalogURL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront http running", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}
}
