package main

import (
	"context"
	"flag"
	"io"
	"log"

	"github.com/joho/godotenv"

	"github.com/franckalain/healthscanner/internal/config"
	"github.com/franckalain/healthscanner/internal/database"
	"github.com/franckalain/healthscanner/internal/health"
	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/lookup"
	"github.com/franckalain/healthscanner/internal/metrics"
	"github.com/franckalain/healthscanner/internal/ml"
	"github.com/franckalain/healthscanner/internal/models"
	"github.com/franckalain/healthscanner/internal/server"
)

func main() {
	// A missing .env is fine; the ML settings can also come from the real environment.
	_ = godotenv.Load()

	configPath := flag.String("config", config.GetConfigPath(), "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer appLog.Sync()
	if cfg.Server.Debug {
		appLog.SetDebug(true)
	}

	// Initialize database
	db, err := database.NewSQLiteDB(cfg.Database.Path, appLog)
	if err != nil {
		appLog.Fatal("Failed to connect to database", "path", cfg.Database.Path, "err", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scoring thresholds: defaults, then config overrides, then the watched file.
	base := health.DefaultCriteria().Apply(cfg.Criteria.Overrides)
	if err := health.ValidateCriteria(base); err != nil {
		appLog.Fatal("Invalid criteria overrides", "err", err)
	}
	initial := base
	if cfg.Criteria.Path != "" {
		initial, err = config.LoadCriteria(cfg.Criteria.Path, base)
		if err != nil {
			appLog.Fatal("Failed to load criteria", "path", cfg.Criteria.Path, "err", err)
		}
	}
	criteria := health.NewCriteriaStore(initial)
	if cfg.Criteria.Path != "" {
		// File edits merge like update_criteria: keys the file sets win,
		// everything else keeps its current value.
		go func() {
			onChange := func(u models.CriteriaUpdate) { criteria.Update(u) }
			if err := config.WatchCriteria(ctx, cfg.Criteria.Path, appLog, onChange); err != nil {
				appLog.Error("Criteria watcher stopped", "err", err)
			}
		}()
	}

	// Initialize ML service
	var model ml.Model
	if cfg.ML.Type != "" {
		model, err = ml.NewModel(cfg.ML.Type, cfg.ML.ConfigPath, appLog)
		if err != nil {
			appLog.Fatal("Failed to create ML model", "type", cfg.ML.Type, "err", err)
		}
		if err := model.Load(ctx); err != nil {
			appLog.Fatal("Failed to load ML model", "type", cfg.ML.Type, "err", err)
		}
		if closer, ok := model.(io.Closer); ok {
			defer closer.Close()
		}
	} else {
		appLog.Info("No ML model configured, label scanning disabled")
	}

	products := lookup.NewClient(cfg.Lookup.BaseURL, cfg.LookupTimeout())

	// Initialize and start server
	srv := server.New(db, products, model, criteria, metrics.NewRecorder(), appLog, server.Options{
		HistoryLimit: cfg.Server.HistoryLimit,
	})
	if err := srv.Start(cfg.Server.Port, cfg.Server.StaticDir); err != nil {
		appLog.Fatal("Failed to start server", "err", err)
	}
}
