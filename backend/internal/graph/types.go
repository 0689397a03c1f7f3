package graph

import "time"

// User is the profile snapshot stored on a :User node. Country fields are
// nil when the node exists but the property was never set.
type User struct {
	ID          int64    `json:"id"`
	CountryCode *string  `json:"country_code"`
	CountryName *string  `json:"country_name"`
	TopArtists  []string `json:"top_artists"`
}

// Clone returns a deep copy so cached snapshots cannot be mutated by callers.
func (u User) Clone() User {
	out := u
	if u.CountryCode != nil {
		code := *u.CountryCode
		out.CountryCode = &code
	}
	if u.CountryName != nil {
		name := *u.CountryName
		out.CountryName = &name
	}
	out.TopArtists = append([]string(nil), u.TopArtists...)
	return out
}

// Edge is a directed FOLLOWS relationship.
type Edge struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

// Path is a node sequence returned by a path query.
type Path struct {
	NodeIDs []int64
	Cost    float64
}

// Length is the number of hops in the path.
func (p Path) Length() int {
	if len(p.NodeIDs) == 0 {
		return 0
	}
	return len(p.NodeIDs) - 1
}

// CommunityAlgorithm names a GDS community detection procedure family.
type CommunityAlgorithm string

const (
	AlgorithmLouvain          CommunityAlgorithm = "louvain"
	AlgorithmLabelPropagation CommunityAlgorithm = "labelPropagation"
)

// CommunityStats is the summary yielded by a community detection run.
type CommunityStats struct {
	Algorithm      CommunityAlgorithm
	CommunityCount int64
	Modularity     *float64 // louvain only
	Iterations     int64
	ComputeTime    time.Duration
}

// Membership assigns a user to a community.
type Membership struct {
	UserID      int64
	CommunityID int64
}

// CentralityMeasure names a GDS centrality procedure family.
type CentralityMeasure string

const (
	MeasureDegree      CentralityMeasure = "degree"
	MeasureBetweenness CentralityMeasure = "betweenness"
	MeasureCloseness   CentralityMeasure = "closeness"
)

// Distribution is a GDS centralityDistribution summary.
type Distribution struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P75  float64 `json:"p75"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
}

// CentralityStats is the summary yielded by a centrality stats run.
type CentralityStats struct {
	Measure      CentralityMeasure
	Distribution Distribution
	ComputeTime  time.Duration
}

// ScoredNode is one row of a ranking or centrality stream.
type ScoredNode struct {
	UserID int64
	Score  float64
}

// Triangle is a closed FOLLOWS triad with the country codes of its members.
type Triangle struct {
	UserIDs   [3]int64
	Countries [3]string
}

// EstimateProcedure is the closed set of procedures the engine can estimate.
type EstimateProcedure string

const (
	EstimateDegree      EstimateProcedure = "gds.degree.stream.estimate"
	EstimateBetweenness EstimateProcedure = "gds.betweenness.stream.estimate"
	EstimateCloseness   EstimateProcedure = "gds.closeness.stream.estimate"
	EstimatePageRank    EstimateProcedure = "gds.pageRank.stream.estimate"
	EstimateLouvain     EstimateProcedure = "gds.louvain.stream.estimate"
	EstimateLabelProp   EstimateProcedure = "gds.labelPropagation.stream.estimate"
	EstimateTriangles   EstimateProcedure = "gds.triangleCount.stream.estimate"
	EstimateAllPairs    EstimateProcedure = "gds.allShortestPaths.stream.estimate"
)

// MemoryEstimate is the engine's memory estimate for a procedure run.
type MemoryEstimate struct {
	BytesMin       int64  `json:"bytes_min"`
	BytesMax       int64  `json:"bytes_max"`
	RequiredMemory string `json:"human_readable"`
}

// QueryMetrics is the collaborator-reported cost of a query.
type QueryMetrics struct {
	ExecutionTime time.Duration
}
