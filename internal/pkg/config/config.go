package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SearchConfig holds the proximity search limits and cache TTLs.
type SearchConfig struct {
	DefaultRadiusMeters float64
	MaxRadiusMeters     float64
	DefaultLimit        int
	MaxLimit            int
	CacheTTL            time.Duration
}

// CacheConfig holds the TTLs of the non-search caches.
type CacheConfig struct {
	AggregatesTTL time.Duration
	GeocodeTTL    time.Duration
}

// PointsConfig maps contribution actions to awarded points.
type PointsConfig struct {
	Review   int
	Restroom int
	Photo    int
	Helpful  int
}

type ExternalConfig struct {
	OverpassURL  string
	NominatimURL string
	HTTPTimeout  time.Duration
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

type Config struct {
	Repositories RepositoriesConfig
	JWT          JWTConfig
	Search       SearchConfig
	Cache        CacheConfig
	Points       PointsConfig
	External     ExternalConfig
	ServerPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "looquest"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
			Redis: RedisConfig{
				Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getEnvIntOrDefault("REDIS_DB", 0),
			},
		},
		JWT: JWTConfig{
			Secret:          getEnvOrDefault("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDurationOrDefault("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDurationOrDefault("JWT_REFRESH_TTL", 30*24*time.Hour),
		},
		Search: SearchConfig{
			DefaultRadiusMeters: 5000,
			MaxRadiusMeters:     50000,
			DefaultLimit:        50,
			MaxLimit:            200,
			CacheTTL:            getEnvDurationOrDefault("SEARCH_CACHE_TTL", 300*time.Second),
		},
		Cache: CacheConfig{
			AggregatesTTL: getEnvDurationOrDefault("AGGREGATES_CACHE_TTL", 1800*time.Second),
			GeocodeTTL:    getEnvDurationOrDefault("GEOCODE_CACHE_TTL", 24*time.Hour),
		},
		Points: PointsConfig{
			Review:   10,
			Restroom: 20,
			Photo:    5,
			Helpful:  2,
		},
		External: ExternalConfig{
			OverpassURL:  getEnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			NominatimURL: getEnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			HTTPTimeout:  getEnvDurationOrDefault("EXTERNAL_HTTP_TIMEOUT", 15*time.Second),
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
