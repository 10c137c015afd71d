package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medstore/m/internal/api"
	"medstore/m/internal/config"
	"medstore/m/internal/database"
	"medstore/m/internal/migrations"
	"medstore/m/internal/pos"
	"medstore/m/internal/seed"
	"medstore/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	if cfg.SeedFile != "" {
		seed.LoadMedicines(db, cfg.SeedFile, logger)
	}

	medicines := store.NewMedicineStore(db, logger)
	sales := store.NewSaleStore(db, logger)
	settings := store.NewSettingsStore(db)
	checkout := pos.NewCheckout(sales, medicines, medicines, logger)

	handler := api.New(db, medicines, sales, settings, checkout, cfg.Secret, logger)

	logger.Info("medstore POS server starting", zap.String("port", cfg.HTTPPort))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
