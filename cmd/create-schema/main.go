package main

import (
	"context"
	"log"

	"civicreport-backend/config"
	"civicreport-backend/repository"
)

func main() {
	config.LoadDotEnv()

	opts, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if opts.Driver == config.DriverMemory {
		log.Println("STORE_DRIVER=memory has no schema, nothing to do")
		return
	}

	ctx := context.Background()

	stores, err := repository.OpenStores(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer stores.Close()

	if err := stores.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	log.Printf("✓ %s schema ready", opts.Driver)
}
