package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/quillpost/quillpost/internal/newsletter/app"
)

func main() {
	// A missing .env file is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
