package router

import (
	"firebase.google.com/go/v4/auth"
	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/engine"
	"github.com/devlinkhq/backend/internal/handlers"
	"github.com/devlinkhq/backend/internal/middleware"
	"github.com/devlinkhq/backend/internal/models"
	"github.com/devlinkhq/backend/internal/notify"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/devlinkhq/backend/internal/ws"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies carries everything the route tree needs
type Dependencies struct {
	Postgres   *gorm.DB
	Mongo      *mongo.Database
	AuthClient *auth.Client
	Cache      *cache.Cache
	Engine     *engine.Engine
	Batcher    *notify.Batcher
	Hub        *ws.Hub
	Logger     *zap.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) error {
	// AutoMigrate PostgreSQL models
	err := deps.Postgres.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.JobPosting{},
		&models.JobApplication{},
	)
	if err != nil {
		return err
	}
	deps.Logger.Info("PostgreSQL auto-migrations completed")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// Live batch notifications over WebSocket
	e.GET("/ws", deps.Hub.Handle)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(deps.Postgres)
	postRepo := repositories.NewPostgresPostRepository(deps.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(deps.Postgres)
	commentRepo := repositories.NewPostgresCommentRepository(deps.Postgres)
	jobPostingRepo := repositories.NewPostgresJobPostingRepository(deps.Postgres)
	jobApplicationRepo := repositories.NewPostgresJobApplicationRepository(deps.Postgres)
	serviceRepo := repositories.NewMongoServiceRepository(deps.Mongo)

	// --- Protected routes (require Firebase authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.FirebaseAuthMiddleware(deps.AuthClient, userRepo))

	userHandler := handlers.NewUserHandler(userRepo, serviceRepo, deps.Engine, deps.Cache, deps.Logger)
	userHandler.RegisterUserRoutes(api)

	followHandler := handlers.NewFollowHandler(deps.Engine, followRepo, deps.Cache, deps.Logger)
	followHandler.RegisterFollowRoutes(api)

	postHandler := handlers.NewPostHandler(postRepo, followRepo, deps.Cache, deps.Batcher, deps.Logger)
	postHandler.RegisterPostRoutes(api)

	likeHandler := handlers.NewLikeHandler(deps.Engine, likeRepo, deps.Cache, deps.Logger)
	likeHandler.RegisterLikeRoutes(api)

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo)
	commentHandler.RegisterCommentRoutes(api)

	jobPostingHandler := handlers.NewJobPostingHandler(jobPostingRepo, userRepo, deps.Cache, deps.Logger)
	jobPostingHandler.RegisterJobPostingRoutes(api)

	jobApplicationHandler := handlers.NewJobApplicationHandler(jobApplicationRepo, jobPostingRepo)
	jobApplicationHandler.RegisterJobApplicationRoutes(api)

	serviceHandler := handlers.NewServiceHandler(serviceRepo, deps.Cache, deps.Logger)
	serviceHandler.RegisterServiceRoutes(api)

	deps.Logger.Info("All routes configured")
	return nil
}
