package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilcreatore32/salelink"
	"github.com/ilcreatore32/salelink/config"
	"github.com/ilcreatore32/salelink/httpapi"
	"github.com/ilcreatore32/salelink/memstore"
	"github.com/ilcreatore32/salelink/odoo"
	"github.com/ilcreatore32/salelink/sqlstore"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/lib/pq"
)

// backend is what every storage option provides.
type backend interface {
	salelink.OrderLineStore
	salelink.OrderResolver
	salelink.PriceResolver
	salelink.ProductCatalog
	salelink.OrderConfirmer
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg := config.LoadEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg)
	defer func() {
		_ = logger.Sync()
	}()

	store, closeStore, err := openBackend(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open backend", zap.Error(err), zap.String("backend", cfg.Backend.Kind))
	}
	defer closeStore()

	counter := salelink.NewSalesCounter(store, salelink.CapabilityAuthorizer{}, salelink.WithLogger(logger))
	importer := salelink.NewImporter(store, store, salelink.PriceLineDeriver{Prices: store},
		salelink.WithLogger(logger),
		salelink.WithDefaultQuantity(cfg.Import.DefaultQuantity),
	)
	auth := httpapi.NewAuthenticator(cfg.JWT.SecretKey, cfg.JWT.Issuer)
	handler := httpapi.NewHandler(counter, importer, store, store, auth, logger)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPPort,
		Handler:           httpapi.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("salelink API server starting",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.Backend.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("salelink API server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	logger := salelink.NewLogger(salelink.LoggerEnv(cfg.Server.AppEnv))
	level, err := zapcore.ParseLevel(cfg.Logger.Level)
	if err != nil {
		logger.Warn("Ignoring invalid LOGGER_LEVEL", zap.String("level", cfg.Logger.Level))
		return logger
	}
	return logger.WithOptions(zap.IncreaseLevel(level))
}

func openBackend(cfg *config.Config, logger *zap.Logger) (backend, func(), error) {
	switch cfg.Backend.Kind {
	case config.BackendPostgres:
		db, err := sqlx.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		repo := sqlstore.NewRepository(db, logger)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL", zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))
		return repo, func() { db.Close() }, nil

	case config.BackendOdoo:
		client, err := odoo.New(cfg.Odoo.URL, cfg.Odoo.DB, cfg.Odoo.Username, cfg.Odoo.Password,
			odoo.WithLogger(logger),
			odoo.WithSkipTLSVerify(cfg.Odoo.SkipTLSVerify),
			odoo.WithAuthTimeout(cfg.Odoo.AuthTimeout),
		)
		if err != nil {
			return nil, nil, err
		}
		return odoo.NewBackend(client), func() { client.Close() }, nil
	}

	store := memstore.New(memstore.WithLogger(logger))
	seedDemo(store, logger)
	return store, func() {}, nil
}

// seedDemo gives the in-memory backend a template with two variants and a
// quotation to import into.
func seedDemo(store *memstore.Store, logger *zap.Logger) {
	tmpl := store.AddTemplate("Office Chair", decimal.NewFromInt(70))
	red, _ := store.AddVariant(tmpl.ID, "Office Chair (Red)", decimal.Zero)
	blue, _ := store.AddVariant(tmpl.ID, "Office Chair (Blue)", decimal.RequireFromString("4.99"))
	order := store.AddOrder("S00001", 0)
	logger.Info("Seeded in-memory catalog",
		zap.Int64("template_id", tmpl.ID),
		zap.Int64s("variant_ids", []int64{red.ID, blue.ID}),
		zap.Int64("order_id", order.ID),
	)
}
