package analytics

import (
	"context"

	"lastfm-graph/backend/internal/enrichment"
	"lastfm-graph/backend/internal/graph"
)

// GraphStore is the plain traversal and write surface of the graph database.
type GraphStore interface {
	Following(ctx context.Context, userID int64) ([]int64, error)
	Followers(ctx context.Context, userID int64) ([]int64, error)
	ConnectedUsers(ctx context.Context, userID int64) ([]int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CommonNeighbors(ctx context.Context, user1ID, user2ID int64) ([]int64, error)
	MergeFollows(ctx context.Context, edges []graph.Edge) (int, error)
	FollowEdges(ctx context.Context) ([]graph.Edge, error)
}

// Estimator asks the algorithm engine for the memory a run would need.
type Estimator interface {
	Estimate(ctx context.Context, procedure graph.EstimateProcedure) (*graph.MemoryEstimate, error)
}

// AlgorithmEngine exposes the named graph algorithms. They run against a
// projection of the store that RefreshProjection brings up to date.
type AlgorithmEngine interface {
	Estimator
	RefreshProjection(ctx context.Context) (bool, error)
	ShortestPath(ctx context.Context, sourceID, targetID int64) (*graph.Path, error)
	AllShortestPaths(ctx context.Context, sourceID, targetID int64) ([]graph.Path, error)
	CommunityStats(ctx context.Context, algo graph.CommunityAlgorithm) (*graph.CommunityStats, error)
	CommunityMembership(ctx context.Context, algo graph.CommunityAlgorithm) ([]graph.Membership, error)
	CentralityStats(ctx context.Context, measure graph.CentralityMeasure) (*graph.CentralityStats, error)
	TopCentrality(ctx context.Context, measure graph.CentralityMeasure, limit int) ([]graph.ScoredNode, error)
	PageRank(ctx context.Context, limit int) ([]graph.ScoredNode, graph.QueryMetrics, error)
	Triangles(ctx context.Context) ([]graph.Triangle, graph.QueryMetrics, error)
}

// QueryRunner executes validated query descriptors.
type QueryRunner interface {
	Estimator
	RunQuery(ctx context.Context, cypher string, params map[string]any) (graph.Result, error)
}

// Enricher resolves and decorates user profiles through the shared cache.
type Enricher interface {
	ResolveUserProfile(ctx context.Context, userID int64) (*graph.User, error)
	EnrichUser(ctx context.Context, userID int64) (*enrichment.EnrichedProfile, error)
	EnrichUsers(ctx context.Context, userIDs []int64) ([]enrichment.EnrichedProfile, error)
}

var (
	_ GraphStore      = (*graph.Repository)(nil)
	_ AlgorithmEngine = (*graph.Repository)(nil)
	_ QueryRunner     = (*graph.Repository)(nil)
	_ Enricher        = (*enrichment.Cache)(nil)
)
