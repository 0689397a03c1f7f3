package main

import (
	"context"
	"fmt"
	"os"

	"lastfm-graph/backend/internal/analytics"
	"lastfm-graph/backend/internal/enrichment"
	"lastfm-graph/backend/internal/graph"
	"lastfm-graph/backend/pkg/config"
	"lastfm-graph/backend/pkg/logger"
)

func main() {
	if err := newRootCmd(openNeo4j, config.Load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Sync()
}

// app holds the services a command runs against.
type app struct {
	repo         *graph.Repository
	neighborhood *analytics.NeighborhoodService
	paths        *analytics.PathfindingService
	reports      *analytics.ReportService
	benchmark    *analytics.BenchmarkService
}

// opener connects to the graph and returns a release func.
type opener func(ctx context.Context, cfg *config.Config) (*app, func(), error)

func openNeo4j(ctx context.Context, cfg *config.Config) (*app, func(), error) {
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Neo4jURI,
		Database:       cfg.Neo4jDatabase,
		Username:       cfg.Neo4jUser,
		Password:       cfg.Neo4jPassword,
		MaxConnections: cfg.Neo4jMaxConnections,
	})
	if err != nil {
		return nil, nil, err
	}
	a := newApp(cfg, client)
	return a, func() { _ = a.repo.Close(context.Background()) }, nil
}

func newApp(cfg *config.Config, client graph.Client) *app {
	repo := graph.NewRepository(client,
		graph.WithProjection(cfg.GraphProjection),
		graph.WithBetweennessSampleSize(cfg.BetweennessSampleSize),
	)
	cache := enrichment.NewFromConfig(cfg, repo)
	limits := analytics.ReportLimits{
		Centrality:     cfg.TopCentrality,
		Ranking:        cfg.TopRanking,
		CommunityEdges: cfg.TopCommunityEdges,
		TriangleGroups: cfg.TopTriangleGroups,
	}
	return &app{
		repo:         repo,
		neighborhood: analytics.NewNeighborhoodService(repo, cache),
		paths:        analytics.NewPathfindingService(repo, repo, cache),
		reports:      analytics.NewReportService(repo, repo, cache, limits),
		benchmark:    analytics.NewBenchmarkService(repo, cfg.APSPLimit, cfg.APSPMaxDepth),
	}
}
