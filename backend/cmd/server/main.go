package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lastfm-graph/backend/internal/analytics"
	"lastfm-graph/backend/internal/api"
	"lastfm-graph/backend/internal/enrichment"
	"lastfm-graph/backend/internal/graph"
	"lastfm-graph/backend/pkg/config"
	"lastfm-graph/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	ctx := context.Background()

	// Initialize Neo4j client
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Neo4jURI,
		Database:       cfg.Neo4jDatabase,
		Username:       cfg.Neo4jUser,
		Password:       cfg.Neo4jPassword,
		MaxConnections: cfg.Neo4jMaxConnections,
	})
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}

	repo := graph.NewRepository(client,
		graph.WithProjection(cfg.GraphProjection),
		graph.WithBetweennessSampleSize(cfg.BetweennessSampleSize),
	)
	defer repo.Close(context.Background())

	if _, err := repo.EnsureSchema(ctx, false); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	// GDS procedures need the in-memory projection
	created, err := repo.EnsureProjection(ctx)
	if err != nil {
		log.Fatal("Failed to ensure graph projection", zap.Error(err))
	}
	log.Info("Graph projection ready",
		zap.String("projection", repo.Projection()),
		zap.Bool("created", created),
	)

	handlers := newHandlers(cfg, repo)
	router := api.NewRouter(handlers, api.RouterOptions{
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newHandlers builds the enrichment cache and every analytics service over
// one repository.
func newHandlers(cfg *config.Config, repo *graph.Repository) *api.Handlers {
	cache := enrichment.NewFromConfig(cfg, repo)

	limits := analytics.ReportLimits{
		Centrality:     cfg.TopCentrality,
		Ranking:        cfg.TopRanking,
		CommunityEdges: cfg.TopCommunityEdges,
		TriangleGroups: cfg.TopTriangleGroups,
	}

	return api.NewHandlers(
		analytics.NewNeighborhoodService(repo, cache),
		analytics.NewPathfindingService(repo, repo, cache),
		analytics.NewReportService(repo, repo, cache, limits),
		analytics.NewBenchmarkService(repo, cfg.APSPLimit, cfg.APSPMaxDepth),
		cache,
	)
}
