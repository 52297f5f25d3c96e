package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/appupdate"
	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	"github.com/hamza-damra/sales-management-backend/internal/config"
	"github.com/hamza-damra/sales-management-backend/internal/customer"
	"github.com/hamza-damra/sales-management-backend/internal/db"
	apphttp "github.com/hamza-damra/sales-management-backend/internal/handler/http"
	"github.com/hamza-damra/sales-management-backend/internal/promotion"
	"github.com/hamza-damra/sales-management-backend/internal/purchase"
	"github.com/hamza-damra/sales-management-backend/internal/report"
	"github.com/hamza-damra/sales-management-backend/internal/returns"
	"github.com/hamza-damra/sales-management-backend/internal/sale"
	"github.com/hamza-damra/sales-management-backend/internal/sequence"
	"github.com/hamza-damra/sales-management-backend/internal/supplier"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "sales-backend").Logger()

	log.Info().Msg("Sales backend starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.App.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := pg.ApplyMigrations(cfg.Postgres); err != nil {
		pg.Close()
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	sqlxDB := pg.SQLX()

	seq, err := sequence.NewSnowflake(cfg.App.SequenceNodeID)
	if err != nil {
		pg.Close()
		log.Fatal().Err(err).Msg("Failed to initialize sequence generator")
	}

	productRepo := catalog.NewRepository(pg.Pool)
	customerRepo := customer.NewRepository(pg.Pool)
	supplierRepo := supplier.NewRepository(pg.Pool)
	saleRepo := sale.NewRepository(pg.Pool)
	purchaseRepo := purchase.NewRepository(pg.Pool)
	returnRepo := returns.NewRepository(pg.Pool)
	promotionRepo := promotion.NewRepository(pg.Pool)
	reportRepo := report.NewRepository(sqlxDB)
	versionRepo := appupdate.NewRepository(pg.Pool)

	router := apphttp.NewRouter(apphttp.Services{
		Products:   catalog.NewService(productRepo),
		Customers:  customer.NewService(customerRepo),
		Suppliers:  supplier.NewService(supplierRepo),
		Sales:      sale.NewService(saleRepo, productRepo, customerRepo, promotionRepo, seq),
		Purchases:  purchase.NewService(purchaseRepo, productRepo, supplierRepo, seq),
		Returns:    returns.NewService(returnRepo, saleRepo, seq),
		Promotions: promotion.NewService(promotionRepo),
		Reports:    report.NewService(reportRepo),
		Updates:    appupdate.NewService(versionRepo),
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	if err := sqlxDB.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close sqlx handle")
	}
	pg.Close()

	log.Info().Msg("Sales backend stopped gracefully")
}
