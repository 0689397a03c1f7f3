package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "lastfm-graph/backend/pkg/errors"
)

// Name resolver strategies
const (
	ResolverLastFM   = "lastfm"
	ResolverPage     = "page"
	ResolverIdentity = "identity"
)

// Cache eviction policies
const (
	CachePolicyUnbounded = "unbounded"
	CachePolicyLRU       = "lru"
)

// Config holds all application configuration
type Config struct {
	// App
	Port           string
	Env            string
	LogLevel       string
	RequestTimeout time.Duration

	// Neo4j
	Neo4jURI            string
	Neo4jUser           string
	Neo4jPassword       string
	Neo4jDatabase       string
	Neo4jMaxConnections int
	GraphProjection     string // GDS in-memory projection name
	ProfileFetchTimeout time.Duration

	// Name lookup
	LastFMAPIKey          string
	LastFMAPIURL          string
	LastFMWebURL          string
	NameResolver          string
	NameLookupTimeout     time.Duration
	NameLookupRPS         float64
	NameLookupBurst       int
	NameLookupConcurrency int

	// Enrichment cache
	CachePolicy   string
	CacheCapacity int
	CacheTTL      time.Duration

	// Analytics
	APSPLimit             int
	APSPMaxDepth          int
	BetweennessSampleSize int
	TopCentrality         int
	TopRanking            int
	TopCommunityEdges     int
	TopTriangleGroups     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8000"),
		Env:                   getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", ""),
		RequestTimeout:        getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase:         getEnv("NEO4J_DATABASE", ""),
		Neo4jMaxConnections:   getEnvInt("NEO4J_MAX_CONNECTIONS", 50),
		GraphProjection:       getEnv("GRAPH_PROJECTION", "lastfm"),
		ProfileFetchTimeout:   getEnvDuration("PROFILE_FETCH_TIMEOUT", 10*time.Second),
		LastFMAPIKey:          getEnv("LASTFM_API_KEY", ""),
		LastFMAPIURL:          getEnv("LASTFM_API_URL", "http://ws.audioscrobbler.com/2.0/"),
		LastFMWebURL:          getEnv("LASTFM_WEB_URL", "https://www.last.fm/music/"),
		NameResolver:          strings.ToLower(getEnv("NAME_RESOLVER", "")),
		NameLookupTimeout:     getEnvDuration("NAME_LOOKUP_TIMEOUT", 5*time.Second),
		NameLookupRPS:         getEnvFloat("NAME_LOOKUP_RPS", 5),
		NameLookupBurst:       getEnvInt("NAME_LOOKUP_BURST", 5),
		NameLookupConcurrency: getEnvInt("NAME_LOOKUP_CONCURRENCY", 4),
		CachePolicy:           strings.ToLower(getEnv("CACHE_POLICY", CachePolicyUnbounded)),
		CacheCapacity:         getEnvInt("CACHE_CAPACITY", 10000),
		CacheTTL:              getEnvDuration("CACHE_TTL", 0),
		APSPLimit:             getEnvInt("APSP_LIMIT", 1000),
		APSPMaxDepth:          getEnvInt("APSP_MAX_DEPTH", 6),
		BetweennessSampleSize: getEnvInt("BETWEENNESS_SAMPLE_SIZE", 0),
		TopCentrality:         getEnvInt("TOP_CENTRALITY", 10),
		TopRanking:            getEnvInt("TOP_RANKING", 30),
		TopCommunityEdges:     getEnvInt("TOP_COMMUNITY_EDGES", 20),
		TopTriangleGroups:     getEnvInt("TOP_TRIANGLE_GROUPS", 50),
	}

	if cfg.NameResolver == "" {
		// Live lookups are pointless without a key
		if cfg.LastFMAPIKey != "" {
			cfg.NameResolver = ResolverLastFM
		} else {
			cfg.NameResolver = ResolverIdentity
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	if c.GraphProjection == "" {
		return apperrors.NewConfigMissingRequired("GRAPH_PROJECTION")
	}

	switch c.NameResolver {
	case ResolverLastFM:
		if c.LastFMAPIKey == "" {
			return apperrors.NewConfigValidationFailed("LASTFM_API_KEY", "required when NAME_RESOLVER=lastfm")
		}
	case ResolverPage, ResolverIdentity:
	default:
		return apperrors.NewConfigValidationFailed("NAME_RESOLVER", fmt.Sprintf("unknown resolver %q", c.NameResolver))
	}

	switch c.CachePolicy {
	case CachePolicyUnbounded:
	case CachePolicyLRU:
		if c.CacheCapacity <= 0 {
			return apperrors.NewConfigValidationFailed("CACHE_CAPACITY", "must be positive for the lru policy")
		}
	default:
		return apperrors.NewConfigValidationFailed("CACHE_POLICY", fmt.Sprintf("unknown policy %q", c.CachePolicy))
	}

	if c.ProfileFetchTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("PROFILE_FETCH_TIMEOUT", "must be positive")
	}
	if c.NameLookupTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("NAME_LOOKUP_TIMEOUT", "must be positive")
	}
	if c.NameLookupConcurrency <= 0 {
		return apperrors.NewConfigValidationFailed("NAME_LOOKUP_CONCURRENCY", "must be positive")
	}
	if c.APSPLimit <= 0 {
		return apperrors.NewConfigValidationFailed("APSP_LIMIT", "must be positive")
	}
	if c.APSPMaxDepth <= 0 {
		return apperrors.NewConfigValidationFailed("APSP_MAX_DEPTH", "must be positive")
	}
	if c.BetweennessSampleSize < 0 {
		return apperrors.NewConfigValidationFailed("BETWEENNESS_SAMPLE_SIZE", "must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
