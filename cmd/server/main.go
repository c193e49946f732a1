package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/memorylane/backend/internal/blob/gridfs"
	supastorage "github.com/anonto42/memorylane/backend/internal/blob/supabase"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/middleware"
	"github.com/anonto42/memorylane/backend/internal/router"
	"github.com/anonto42/memorylane/backend/internal/store/gormstore"
	"github.com/anonto42/memorylane/backend/pkg/config"
	"github.com/anonto42/memorylane/backend/pkg/firebase"
	"github.com/anonto42/memorylane/backend/pkg/logger"
	"github.com/anonto42/memorylane/backend/validators"
	"github.com/labstack/echo/v4"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := logger.Init(cfg.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	if err := cfg.ValidateServer(); err != nil {
		lg.Fatal("invalid configuration", zap.Error(err))
	}

	// Initialize database connections
	db, err := config.InitDB(cfg, lg)
	if err != nil {
		lg.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	rows := gormstore.New(db.Postgres)
	if err := rows.Migrate(); err != nil {
		lg.Fatal("failed to migrate models", zap.Error(err))
	}
	lg.Info("PostgreSQL auto-migrations completed")

	ctx := context.Background()
	deps := router.Dependencies{
		Postgres: db.Postgres,
		Store:    rows,
		Bucket:   cfg.StorageBucket,
		Log:      lg,
	}

	var supaClient *supa.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		supaClient, err = supa.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, nil)
		if err != nil {
			lg.Fatal("failed to create Supabase client", zap.Error(err))
		}
	}

	// Image storage
	switch cfg.StorageBackend {
	case config.StorageGridFS:
		objects, err := gridfs.New(db.Mongo.Database(cfg.MongoDatabase), cfg.StorageBucket, cfg.PublicBaseURL)
		if err != nil {
			lg.Fatal("failed to open GridFS bucket", zap.Error(err))
		}
		deps.Images, deps.Objects = objects, objects
	default:
		deps.Images = supastorage.NewFromClient(supaClient, cfg.SupabaseURL, cfg.StorageBucket)
	}
	lg.Info("image storage configured", zap.String("backend", cfg.StorageBackend))

	// Identity provider
	switch cfg.IdentityProvider {
	case config.IdentityFirebase:
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			lg.Fatal("failed to initialize Firebase", zap.Error(err))
		}
		deps.Directory = identity.NewFirebaseDirectory(firebaseApp.AuthClient)
		deps.Auth = middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient)
	default:
		deps.Directory = identity.NewPostgresDirectory(db.Postgres)
		if cfg.SupabaseJWTSecret != "" {
			deps.Auth = middleware.JWTAuthMiddleware(cfg.SupabaseJWTSecret)
		} else {
			deps.Auth = middleware.Authenticate(middleware.SupabaseUserVerifier(supaClient))
		}
	}
	lg.Info("identity provider configured", zap.String("provider", cfg.IdentityProvider))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, lg)
	router.SetupRoutes(e, deps)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", zap.Error(err))
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	shutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdown); err != nil {
		lg.Warn("graceful shutdown failed", zap.Error(err))
	}
}
