package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/domain"
	"github.com/looquest/looquest/internal/app/domain/admin"
	"github.com/looquest/looquest/internal/app/domain/auth"
	"github.com/looquest/looquest/internal/app/domain/favorites"
	"github.com/looquest/looquest/internal/app/domain/ingest"
	"github.com/looquest/looquest/internal/app/domain/report"
	"github.com/looquest/looquest/internal/app/domain/restroom"
	"github.com/looquest/looquest/internal/app/domain/review"
	"github.com/looquest/looquest/internal/app/domain/user"
	"github.com/looquest/looquest/internal/app/middleware"
	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/cache"
	"github.com/looquest/looquest/internal/pkg/config"
	"github.com/looquest/looquest/internal/pkg/geocode"
)

// AppHandlers groups every HTTP handler the router mounts.
type AppHandlers struct {
	Auth      *auth.Handler
	Restrooms *restroom.Handler
	Reviews   *review.Handler
	Favorites *favorites.Handler
	Reports   *report.Handler
	Users     *user.Handler
	Admin     *admin.Handler
	Ingest    *ingest.Handler
}

// Setup wires repositories, services and handlers and mounts all routes.
func Setup(r *gin.Engine, pool *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) {
	h := setupDependencies(pool, redisClient, cfg, logger)
	setupRoutes(r, h, pool, redisClient, cfg)
}

func setupDependencies(pool *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) *AppHandlers {
	base := domain.NewBaseHandler(logger)
	store := cache.NewStore(redisClient, logger)
	geocoder := geocode.NewClient(cfg.External.NominatimURL, cfg.External.HTTPTimeout,
		store, cfg.Cache.GeocodeTTL, logger)

	authRepo := auth.NewRepository(pool, logger.Named("auth"))
	authSvc := auth.NewService(authRepo, cfg, logger.Named("auth"))

	userRepo := user.NewRepository(pool, logger.Named("user"))
	userSvc := user.NewService(userRepo, cfg, logger.Named("user"))

	restroomRepo := restroom.NewRepository(pool, logger.Named("restroom"))
	restroomSvc := restroom.NewService(restroomRepo, store, geocoder, userSvc, cfg, logger.Named("restroom"))

	reviewRepo := review.NewRepository(pool, logger.Named("review"))
	recomputer := review.NewRecomputer(reviewRepo, logger.Named("recompute"))
	reviewSvc := review.NewService(reviewRepo, recomputer, userSvc, cfg, logger.Named("review"))

	favRepo := favorites.NewRepository(pool, logger.Named("favorites"))
	favSvc := favorites.NewService(favRepo, cfg, logger.Named("favorites"))

	reportRepo := report.NewRepository(pool, logger.Named("report"))
	reportSvc := report.NewService(reportRepo, restroomSvc, cfg, logger.Named("report"))

	adminRepo := admin.NewRepository(pool, logger.Named("admin"))
	adminSvc := admin.NewService(adminRepo, reviewSvc, userSvc, cfg, logger.Named("admin"))

	importer := ingest.NewImporter(restroomRepo, cfg.External, logger.Named("ingest"))

	return &AppHandlers{
		Auth:      auth.NewHandler(authSvc, base),
		Restrooms: restroom.NewHandler(restroomSvc, base),
		Reviews:   review.NewHandler(reviewSvc, base),
		Favorites: favorites.NewHandler(favSvc, base),
		Reports:   report.NewHandler(reportSvc, base),
		Users:     user.NewHandler(userSvc, base),
		Admin:     admin.NewHandler(adminSvc, base),
		Ingest:    ingest.NewHandler(importer, base),
	}
}

func setupRoutes(r *gin.Engine, h *AppHandlers, pool *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config) {
	r.GET("/health", healthHandler(pool, redisClient))

	v1 := r.Group("/api/v1")

	// Public routes.
	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/login", h.Auth.Login)
	v1.POST("/auth/refresh", h.Auth.Refresh)

	v1.GET("/restrooms/search", h.Restrooms.Search)
	v1.POST("/restrooms/search", h.Restrooms.Search)
	v1.GET("/restrooms/route", h.Restrooms.SearchAlongRoute)
	v1.GET("/restrooms/:id", h.Restrooms.GetByID)
	v1.GET("/restrooms/:id/reviews", h.Reviews.ListByRestroom)
	v1.GET("/restrooms/:id/aggregates", h.Reviews.Aggregates)

	v1.GET("/leaderboard", h.Users.Leaderboard)
	v1.GET("/users/:id", h.Users.GetProfile)
	v1.GET("/users/:id/stats", h.Users.GetStats)
	v1.GET("/users/:id/reviews", h.Reviews.ListByUser)

	// Authenticated routes.
	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.POST("/auth/change-password", h.Auth.ChangePassword)
		authed.GET("/auth/me", h.Auth.Me)

		authed.POST("/restrooms", h.Restrooms.Create)
		authed.PUT("/restrooms/:id", h.Restrooms.Update)
		authed.DELETE("/restrooms/:id", h.Restrooms.Delete)

		authed.POST("/restrooms/:id/reviews", h.Reviews.Create)
		authed.DELETE("/reviews/:id", h.Reviews.Delete)
		authed.POST("/reviews/:id/helpful", h.Reviews.MarkHelpful)

		authed.POST("/restrooms/:id/favorite", h.Favorites.Add)
		authed.DELETE("/restrooms/:id/favorite", h.Favorites.Remove)
		authed.GET("/users/me/favorites", h.Favorites.List)

		authed.POST("/restrooms/:id/reports", h.Reports.Create)

		authed.GET("/users/me", h.Users.GetMe)
		authed.PATCH("/users/me", h.Users.UpdateMe)
		authed.DELETE("/users/me", h.Users.DeleteMe)
	}

	// Moderation routes.
	mod := v1.Group("/admin")
	mod.Use(middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.RequireRole(models.RoleModerator, models.RoleAdmin))
	{
		mod.GET("/dashboard", h.Admin.Dashboard)
		mod.GET("/analytics", h.Admin.Analytics)
		mod.GET("/stats", h.Admin.Dashboard)

		mod.GET("/restrooms", h.Admin.ListRestrooms)
		mod.PATCH("/restrooms/:id", h.Restrooms.Moderate)
		mod.DELETE("/restrooms/:id", h.Admin.DeleteRestroom)
		mod.POST("/restrooms/:id/recompute", h.Admin.Recompute)
		mod.POST("/bulk/verify-restrooms", h.Admin.BulkVerify)
		mod.POST("/bulk/close-restrooms", h.Admin.BulkClose)

		mod.GET("/reports", h.Reports.ListOpen)
		mod.GET("/restrooms/:id/reports", h.Reports.ListByRestroom)
		mod.POST("/reports/:id/resolve", h.Reports.Resolve)
		mod.POST("/reports/:id/dismiss", h.Reports.Dismiss)
	}

	// Admin-only routes.
	adm := v1.Group("/admin")
	adm.Use(middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.RequireRole(models.RoleAdmin))
	{
		adm.GET("/users", h.Admin.ListUsers)
		adm.PATCH("/users/:id", h.Admin.UpdateUser)
		adm.DELETE("/users/:id", h.Admin.DeleteUser)

		adm.POST("/ingest/osm", h.Ingest.ImportOSM)
	}
}

// healthHandler reports readiness of the two backing stores. Postgres
// being down is fatal for the API; Redis only degrades caching.
func healthHandler(pool *pgxpool.Pool, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		health := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}

		if err := pool.Ping(c.Request.Context()); err != nil {
			health["status"] = "degraded"
			health["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			health["redis"] = err.Error()
			if status == http.StatusOK {
				health["status"] = "degraded"
			}
		}

		c.JSON(status, health)
	}
}
