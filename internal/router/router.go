package router

import (
	"github.com/anonto42/memorylane/backend/internal/account"
	"github.com/anonto42/memorylane/backend/internal/assets"
	"github.com/anonto42/memorylane/backend/internal/blob"
	"github.com/anonto42/memorylane/backend/internal/handlers"
	"github.com/anonto42/memorylane/backend/internal/identity"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/anonto42/memorylane/backend/internal/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the routes are built from
type Dependencies struct {
	Postgres *gorm.DB
	// Store sees every row; it backs the account purge.
	Store     store.Client
	Images    blob.Store
	Bucket    string
	Directory identity.Directory
	Auth      echo.MiddlewareFunc
	// Objects serves public image URLs. Nil when the images live on Supabase storage.
	Objects handlers.ObjectReader
	Log     *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Dependencies) {
	log := d.Log
	e.HTTPErrorHandler = handlers.ErrorHandler(log)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	if d.Objects != nil {
		handlers.NewStorageHandler(d.Objects, d.Bucket).RegisterStorageRoutes(e)
		log.Info("public storage routes configured", zap.String("bucket", d.Bucket))
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(d.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(d.Postgres)
	purger := account.NewPurger(d.Store, assets.NewManager(d.Images, d.Bucket, log), d.Directory, log)

	// --- Functions (require a bearer token) ---
	functions := e.Group("/functions/v1", d.Auth)
	handlers.NewFunctionsHandler(d.Directory, userRepo, notificationRepo, purger, log).RegisterFunctionRoutes(functions)
	log.Info("function routes configured")

	// --- Protected API routes ---
	api := e.Group("/api/v1", d.Auth)
	handlers.NewUserHandler(userRepo).RegisterProfileRoutes(api)
	handlers.NewNotificationHandler(notificationRepo).RegisterNotificationRoutes(api)
	log.Info("all routes configured")
}
