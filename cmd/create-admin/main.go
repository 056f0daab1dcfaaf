package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"civicreport-backend/config"
	"civicreport-backend/models"
	"civicreport-backend/repository"
	"civicreport-backend/service"
)

func main() {
	config.LoadDotEnv()

	opts, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	stores, err := repository.OpenStores(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer stores.Close()

	if err := stores.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	username := "admin"
	password := "admin@123"
	mobile := "9999999999"

	// Check if user already exists
	if existing, err := stores.Users.GetByUsername(ctx, username); err == nil {
		log.Printf("User %s already exists (ID: %s)", username, existing.ID)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("Failed to look up %s: %v", username, err)
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	admin := &models.User{
		Username:     username,
		MobileNumber: mobile,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := stores.Users.Create(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("✅ Admin user created successfully!\n")
	fmt.Printf("   ID: %s\n", admin.ID)
	fmt.Printf("   Username: %s\n", username)
	fmt.Printf("   Password: %s\n", password)
}
