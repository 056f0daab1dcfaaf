package main

import (
	"context"
	"log"

	"civicreport-backend/auth"
	"civicreport-backend/config"
	"civicreport-backend/events"
	"civicreport-backend/handlers"
	"civicreport-backend/repository"
	"civicreport-backend/service"
	"civicreport-backend/storage"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize stores
	stores, err := repository.OpenStores(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.StoreDriver, err)
	}
	defer stores.Close()

	if err := stores.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	// Initialize storage
	mediaStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Println("Storage initialized")

	// Initialize token handling
	verifier, issuer, err := initAuth(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	// Initialize event publisher
	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		publisher = nc
		log.Println("NATS publisher initialized")
	} else {
		log.Println("Warning: NATS_URL not set, report events are not published")
	}

	// Initialize services
	identityOpts := []service.IdentityServiceOption{service.IdentityWithUserStore(stores.Users)}
	if issuer != nil {
		identityOpts = append(identityOpts, service.IdentityWithTokenIssuer(issuer))
	}
	identityService := service.NewIdentityService(identityOpts...)

	reportService := service.NewReportService(
		service.WithReportStore(stores.Reports),
		service.WithUserStore(stores.Users),
		service.WithPublisher(publisher),
	)

	feedService := service.NewFeedService(
		service.FeedWithReportStore(stores.Reports),
		service.FeedWithUserStore(stores.Users),
		service.FeedWithLimit(cfg.FeedLimit),
	)

	engagementService := service.NewEngagementService(
		service.EngagementWithReportStore(stores.Reports),
		service.EngagementWithUserStore(stores.Users),
		service.EngagementWithPublisher(publisher),
	)

	adminService := service.NewAdminService(
		service.AdminWithReportStore(stores.Reports),
		service.AdminWithUserStore(stores.Users),
		service.AdminWithPublisher(publisher),
		service.AdminWithTransitions(cfg.StatusTransitions),
		service.AdminWithRoleCheck(cfg.EnforceAdminRole),
	)

	// Setup Gin router
	if err := handlers.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	r := handlers.NewRouter(handlers.Router{
		Auth:     handlers.NewAuthHandler(identityService),
		Location: handlers.NewLocationHandler(identityService),
		Reports: handlers.NewReportHandler(reportService, feedService, mediaStorage, cfg.MediaBaseURL, handlers.UploadLimits{
			MaxFiles:     cfg.MaxUploadFiles,
			MaxFileBytes: cfg.MaxUploadBytes,
		}),
		Engagement: handlers.NewEngagementHandler(engagementService),
		Admin:      handlers.NewAdminHandler(adminService),
		Media:      handlers.NewMediaHandler(mediaStorage),
		Verifier:   verifier,
	})

	// Start server
	log.Printf("Server starting on port %s (store=%s)", cfg.Port, cfg.StoreDriver)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// initAuth builds the bearer token verifier chain. The local issuer is nil when
// JWT_SECRET is unset, in which case login is served by the external provider.
func initAuth(ctx context.Context, cfg config.Config) (auth.Verifier, *auth.TokenIssuer, error) {
	var (
		verifiers auth.Verifiers
		issuer    *auth.TokenIssuer
	)

	if cfg.JWTSecret != "" {
		var err error
		issuer, err = auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, nil, err
		}
		verifiers = append(verifiers, issuer)
		log.Println("Local token issuer initialized")
	}

	if cfg.OIDCIssuerURL != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return nil, nil, err
		}
		verifiers = append(verifiers, oidcVerifier)
		log.Printf("OIDC verifier initialized for %s", cfg.OIDCIssuerURL)
	}

	return verifiers, issuer, nil
}
