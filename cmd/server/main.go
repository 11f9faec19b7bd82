package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lisongmechlab/lsml-sub002/internal/armor"
	"github.com/lisongmechlab/lsml-sub002/internal/autoplace"
	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/config"
	"github.com/lisongmechlab/lsml-sub002/internal/db"
	"github.com/lisongmechlab/lsml-sub002/internal/handlers"
	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		config.Exitf("Invalid configuration: %v", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		config.Exitf("Failed to build logger: %v", err)
	}

	cat, err := loadCatalog(ctx, cfg.CatalogDBPath)
	if err != nil {
		log.Error(err, "Failed to load catalog", "path", cfg.CatalogDBPath)
		os.Exit(1)
	}
	log.Info("Catalog loaded", "chassis", len(cat.AllChassis()), "items", len(cat.AllItems()))

	m := metrics.New()
	lh := &handlers.LoadoutHandler{
		Catalog:   cat,
		Sessions:  handlers.NewSessions(cfg.UndoDepth),
		Placer:    autoplace.NewPlacer(autoplace.WithMaxNodes(cfg.SearchMaxNodes), autoplace.WithRecorder(m)),
		Allocator: armor.NewAllocator(m),
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error(err, "Failed to connect to Postgres")
			os.Exit(1)
		}
		defer pool.Close()
		lh.Store = db.NewLoadoutStore(pool)
		log.Info("Saved loadouts enabled")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewMux(handlers.Server{
			Loadouts:       lh,
			Catalog:        &handlers.CatalogHandler{Catalog: cat},
			Metrics:        m,
			Logger:         log,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Loadout server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Shutdown did not complete")
	}
}

// loadCatalog reads the SQLite catalog at path, or the embedded one when path
// is empty.
func loadCatalog(ctx context.Context, path string) (catalog.Catalog, error) {
	if path == "" {
		return catalog.Builtin()
	}
	sqlDB, err := db.ConnectSQLite(path)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()
	return db.NewCatalogStore(sqlDB).LoadCatalog(ctx)
}
