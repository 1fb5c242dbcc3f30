package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/server"
)

func main() {

	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewLogger(cfg.AppEnv)

	app := server.NewApp(cfg, logger)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
