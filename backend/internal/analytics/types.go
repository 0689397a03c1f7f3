package analytics

import (
	"time"

	"lastfm-graph/backend/internal/enrichment"
	"lastfm-graph/backend/internal/graph"
)

// ConnectedNodesResult is a user with every id adjacent in either direction,
// also split by edge direction.
type ConnectedNodesResult struct {
	User           enrichment.EnrichedProfile `json:"user"`
	ConnectedNodes []int64                    `json:"connected_nodes"`
	Following      []int64                    `json:"following"`
	Followers      []int64                    `json:"followers"`
	Count          int                        `json:"count"`
}

// NodeCount is the number of users in the graph.
type NodeCount struct {
	NodeCount int64 `json:"node_count"`
}

// CommonNeighborsResult lists the users adjacent to both inputs.
type CommonNeighborsResult struct {
	User1           enrichment.EnrichedProfile   `json:"user1"`
	User2           enrichment.EnrichedProfile   `json:"user2"`
	CommonNeighbors []enrichment.EnrichedProfile `json:"common_neighbors"`
	Count           int                          `json:"count"`
}

// PathResult is a path between two users. Found is false for the
// NoPathFound result, which is not an error.
type PathResult struct {
	Source  int64                        `json:"source"`
	Target  int64                        `json:"target"`
	Found   bool                         `json:"found"`
	NodeIDs []int64                      `json:"path"`
	Length  int                          `json:"length"`
	Cost    float64                      `json:"cost"`
	Nodes   []enrichment.EnrichedProfile `json:"nodes"`
}

// NoPathFound builds the empty result for a connected-less pair.
func NoPathFound(source, target int64) *PathResult {
	return &PathResult{
		Source:  source,
		Target:  target,
		NodeIDs: []int64{},
		Nodes:   []enrichment.EnrichedProfile{},
	}
}

// AddPathResult confirms an AddEdgePath call.
type AddPathResult struct {
	NodeIDs   []int64 `json:"path"`
	Requested int     `json:"edges_requested"`
	Created   int     `json:"edges_created"`
}

// ScoredProfile is an enriched user with an algorithm score.
type ScoredProfile struct {
	enrichment.EnrichedProfile
	Score float64 `json:"score"`
}

// CommunityEdge aggregates the follow edges crossing two communities.
type CommunityEdge struct {
	Source     int64 `json:"source"`
	Target     int64 `json:"target"`
	Count      int   `json:"count"`
	SourceSize int   `json:"source_size"`
	TargetSize int   `json:"target_size"`
}

// CommunityMetrics summarises one community detection strategy.
type CommunityMetrics struct {
	CommunityCount int64    `json:"community_count"`
	Modularity     *float64 `json:"modularity"`
	Iterations     int64    `json:"iterations"`
	ComputeTimeMs  int64    `json:"compute_time_ms"`
}

// CommunityResult is the per-strategy block of the community report.
type CommunityResult struct {
	Algorithm graph.CommunityAlgorithm `json:"algorithm"`
	Metrics   CommunityMetrics         `json:"metrics"`
	Edges     []CommunityEdge          `json:"edges"`
}

// CommunityReport compares the two community detection strategies.
type CommunityReport struct {
	Louvain   CommunityResult `json:"louvain"`
	LabelProp CommunityResult `json:"labelProp"`
}

// CentralityResult is the per-measure block of the centrality report.
type CentralityResult struct {
	Measure        graph.CentralityMeasure `json:"measure"`
	Distribution   graph.Distribution      `json:"distribution"`
	ComputeTimeMs  int64                   `json:"compute_time_ms"`
	TopNodes       []ScoredProfile         `json:"top_nodes"`
	MemoryEstimate *graph.MemoryEstimate   `json:"memory_estimate"`
}

// CentralityReport holds one block per centrality measure.
type CentralityReport struct {
	Degree      CentralityResult `json:"degree"`
	Betweenness CentralityResult `json:"betweenness"`
	Closeness   CentralityResult `json:"closeness"`
}

// ReportMetrics annotates a report with collaborator costs.
type ReportMetrics struct {
	ExecutionTimeMs int64                 `json:"execution_time_ms"`
	MemoryEstimate  *graph.MemoryEstimate `json:"memory_estimate"`
}

// RankingReport lists the most influential users.
type RankingReport struct {
	Users   []ScoredProfile `json:"users"`
	Metrics ReportMetrics   `json:"metrics"`
}

// Country groups for triangle analysis.
const (
	GroupSingleCountry  = "single-country"
	GroupTwoCountries   = "two-countries"
	GroupThreeCountries = "three-countries"
)

// TriangleGroup counts triangles sharing the same sorted country triple.
type TriangleGroup struct {
	CountriesInvolved [3]string `json:"countriesInvolved"`
	TriangleCount     int       `json:"triangleCount"`
	CountryGroup      string    `json:"countryGroup"`
}

// CountryPair counts how often two countries meet inside a triangle.
type CountryPair struct {
	CountryA  string `json:"countryA"`
	CountryB  string `json:"countryB"`
	Frequency int    `json:"frequency"`
}

// TriangleReport is the triangle-pattern analysis.
type TriangleReport struct {
	TotalTriangles int `json:"total_triangles"`
	Grouped        struct {
		Data    []TriangleGroup `json:"data"`
		Metrics ReportMetrics   `json:"metrics"`
	} `json:"grouped_analysis"`
	Pairwise struct {
		Data    []CountryPair `json:"data"`
		Metrics ReportMetrics `json:"metrics"`
	} `json:"pairwise_analysis"`
}

// DistanceTriple is one row of an all-pairs strategy.
type DistanceTriple struct {
	Source   int64   `json:"source"`
	Target   int64   `json:"target"`
	Distance float64 `json:"distance"`
}

// HistogramBin is a distance with its frequency.
type HistogramBin struct {
	Distance  float64 `json:"distance"`
	Frequency int     `json:"frequency"`
}

// DistanceStats is the shared statistics block of a strategy.
type DistanceStats struct {
	Count     int            `json:"count"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Mean      float64        `json:"mean"`
	Histogram []HistogramBin `json:"histogram"`
}

// StrategyMetrics is the cost of one strategy run.
type StrategyMetrics struct {
	ExecutionTimeMs      int64                 `json:"execution_time_ms"`
	EstimatedMemoryBytes *int64                `json:"estimated_memory_bytes"`
	MemoryEstimate       *graph.MemoryEstimate `json:"memory_estimate"`
}

// StrategyResult bundles the rows, cost and statistics of a strategy.
type StrategyResult struct {
	Strategy   string           `json:"strategy"`
	Paths      []DistanceTriple `json:"paths"`
	Metrics    StrategyMetrics  `json:"performance_metrics"`
	Statistics DistanceStats    `json:"statistics"`
}

// Comparison holds both all-pairs strategies, unreconciled.
type Comparison struct {
	Traversal StrategyResult `json:"cypher_results"`
	Native    StrategyResult `json:"gds_results"`
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
