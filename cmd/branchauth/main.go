package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/you/branchauth/internal/app"
	"github.com/you/branchauth/internal/config"
)

func main() {
	// Optional; secrets may come from the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg); err != nil {
		log.Fatalf("app: %v", err)
	}
}
