package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	database "github.com/looquest/looquest/internal/db"
	"github.com/looquest/looquest/internal/pkg/cache"
	"github.com/looquest/looquest/internal/pkg/config"
)

// Server holds the long-lived dependencies for the HTTP API.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	dbPool *pgxpool.Pool
	redis  *redis.Client
	router http.Handler
}

// New connects to Postgres and Redis and runs the embedded migrations.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	ctx := context.Background()
	dbPool, err := s.setupDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	s.dbPool = dbPool

	s.redis = cache.NewRedisClient(cfg.Repositories.Redis)
	if err := s.redis.Ping(ctx).Err(); err != nil {
		// Search falls back to direct queries when Redis is down, so a
		// failed ping is not fatal at startup.
		logger.Warn("Redis unreachable, caching degraded", zap.Error(err))
	} else {
		logger.Info("Connected to Redis", zap.String("addr", cfg.Repositories.Redis.Addr))
	}

	return s, nil
}

func (s *Server) setupDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	s.logger.Info("Setting up database connection and migrations")

	dbConfig, err := database.NewDatabaseConfig(s.cfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database configuration: %w", err)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, s.cfg.Repositories.Postgres, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	database.WaitForDB(ctx, pool, s.logger)
	s.logger.Info("Connected to Postgres",
		zap.String("host", s.cfg.Repositories.Postgres.Host),
		zap.String("port", s.cfg.Repositories.Postgres.Port),
		zap.String("database", s.cfg.Repositories.Postgres.DB))

	if err = database.RunMigrations(dbConfig.ConnectionURL, s.logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.logger.Info("Database setup completed successfully")
	return pool, nil
}

// HTTPServer creates and configures the HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.ServerPort,
		Handler:      s.router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// SetRouter sets the HTTP router.
func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

// DBPool returns the database connection pool.
func (s *Server) DBPool() *pgxpool.Pool {
	return s.dbPool
}

// Redis returns the Redis client.
func (s *Server) Redis() *redis.Client {
	return s.redis
}

// Close releases all server resources.
func (s *Server) Close() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Error closing Redis client", zap.Error(err))
		}
	}
}
