package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// Graph Data Science Operations
// ============================================================================

// ProjectionExists reports whether the named GDS projection is loaded.
func (r *Repository) ProjectionExists(ctx context.Context) (bool, error) {
	res, err := r.client.ExecuteRead(ctx,
		"CALL gds.graph.exists($graphName) YIELD exists RETURN exists",
		map[string]any{"graphName": r.projection})
	if err != nil {
		return false, fmt.Errorf("failed to check projection: %w", err)
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	exists, _ := res.Records[0]["exists"].(bool)
	return exists, nil
}

// EnsureProjection projects User/FOLLOWS with natural orientation when the
// projection is missing. It reports whether a projection was created.
func (r *Repository) EnsureProjection(ctx context.Context) (bool, error) {
	r.projectionMu.Lock()
	defer r.projectionMu.Unlock()

	exists, err := r.ProjectionExists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		r.logger.Info("Projection already loaded", zap.String("projection", r.projection))
		return false, nil
	}

	gen := r.writeGen.Load()
	if err := r.project(ctx); err != nil {
		return false, err
	}
	r.projectedGen = gen
	return true, nil
}

// RefreshProjection drops and rebuilds the projection when edges were
// created since it was last built. A caller whose write is already covered
// by a concurrent rebuild returns without projecting again. It reports
// whether a rebuild ran.
func (r *Repository) RefreshProjection(ctx context.Context) (bool, error) {
	want := r.writeGen.Load()

	r.projectionMu.Lock()
	defer r.projectionMu.Unlock()

	if r.projectedGen >= want {
		return false, nil
	}

	gen := r.writeGen.Load()
	_, err := r.client.ExecuteWrite(ctx, `
		CALL gds.graph.drop($graphName, false)
		YIELD graphName
		RETURN graphName
	`, map[string]any{"graphName": r.projection})
	if err != nil {
		return false, fmt.Errorf("failed to drop projection: %w", err)
	}
	if err := r.project(ctx); err != nil {
		return false, err
	}
	r.projectedGen = gen
	return true, nil
}

func (r *Repository) project(ctx context.Context) error {
	query := `
		CALL gds.graph.project($graphName, 'User', {
			FOLLOWS: {orientation: 'NATURAL'}
		})
		YIELD graphName, nodeCount, relationshipCount
		RETURN graphName, nodeCount, relationshipCount
	`
	res, err := r.client.ExecuteWrite(ctx, query, map[string]any{"graphName": r.projection})
	if err != nil {
		return fmt.Errorf("failed to create projection: %w", err)
	}

	fields := []zap.Field{zap.String("projection", r.projection)}
	if len(res.Records) > 0 {
		nodes, _ := getInt64FromRecord(res.Records[0], "nodeCount")
		rels, _ := getInt64FromRecord(res.Records[0], "relationshipCount")
		fields = append(fields, zap.Int64("nodes", nodes), zap.Int64("relationships", rels))
	}
	r.logger.Info("Projection created", fields...)
	return nil
}

// CommunityStats runs the stats mode of a community detection algorithm.
func (r *Repository) CommunityStats(ctx context.Context, algo CommunityAlgorithm) (*CommunityStats, error) {
	var query string
	switch algo {
	case AlgorithmLouvain:
		query = `
			CALL gds.louvain.stats($graphName)
			YIELD communityCount, modularity, ranLevels, computeMillis
			RETURN communityCount, modularity, ranLevels AS iterations, computeMillis
		`
	case AlgorithmLabelPropagation:
		query = `
			CALL gds.labelPropagation.stats($graphName)
			YIELD communityCount, ranIterations, computeMillis
			RETURN communityCount, ranIterations AS iterations, computeMillis
		`
	default:
		return nil, fmt.Errorf("unsupported community algorithm: %s", algo)
	}

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{"graphName": r.projection})
	if err != nil {
		return nil, fmt.Errorf("failed to run %s stats: %w", algo, err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%s stats returned no rows", algo)
	}

	record := res.Records[0]
	stats := &CommunityStats{Algorithm: algo}
	stats.CommunityCount, _ = getInt64FromRecord(record, "communityCount")
	stats.Iterations, _ = getInt64FromRecord(record, "iterations")
	millis, _ := getInt64FromRecord(record, "computeMillis")
	stats.ComputeTime = time.Duration(millis) * time.Millisecond
	if modularity, ok := getFloat64FromRecord(record, "modularity"); ok {
		stats.Modularity = &modularity
	}
	return stats, nil
}

// CommunityMembership streams the community assignment of every user.
func (r *Repository) CommunityMembership(ctx context.Context, algo CommunityAlgorithm) ([]Membership, error) {
	var procedure string
	switch algo {
	case AlgorithmLouvain:
		procedure = "gds.louvain.stream"
	case AlgorithmLabelPropagation:
		procedure = "gds.labelPropagation.stream"
	default:
		return nil, fmt.Errorf("unsupported community algorithm: %s", algo)
	}

	query := fmt.Sprintf(`
		CALL %s($graphName)
		YIELD nodeId, communityId
		RETURN gds.util.asNode(nodeId).id AS userId, communityId
	`, procedure)

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{"graphName": r.projection})
	if err != nil {
		return nil, fmt.Errorf("failed to stream %s communities: %w", algo, err)
	}

	members := make([]Membership, 0, len(res.Records))
	for _, record := range res.Records {
		userID, okU := getInt64FromRecord(record, "userId")
		communityID, okC := getInt64FromRecord(record, "communityId")
		if !okU || !okC {
			continue
		}
		members = append(members, Membership{UserID: userID, CommunityID: communityID})
	}
	return members, nil
}

func centralityProcedure(measure CentralityMeasure) (string, error) {
	switch measure {
	case MeasureDegree:
		return "gds.degree", nil
	case MeasureBetweenness:
		return "gds.betweenness", nil
	case MeasureCloseness:
		return "gds.closeness", nil
	}
	return "", fmt.Errorf("unsupported centrality measure: %s", measure)
}

// centralityConfig returns the procedure configuration map for a measure.
func (r *Repository) centralityConfig(measure CentralityMeasure) map[string]any {
	cfg := map[string]any{}
	if measure == MeasureBetweenness && r.sampleSize > 0 {
		cfg["samplingSize"] = r.sampleSize
		cfg["samplingSeed"] = 42
	}
	return cfg
}

// CentralityStats runs the stats mode of a centrality measure.
func (r *Repository) CentralityStats(ctx context.Context, measure CentralityMeasure) (*CentralityStats, error) {
	procedure, err := centralityProcedure(measure)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		CALL %s.stats($graphName, $config)
		YIELD centralityDistribution, computeMillis
		RETURN centralityDistribution, computeMillis
	`, procedure)

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{
		"graphName": r.projection,
		"config":    r.centralityConfig(measure),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run %s stats: %w", measure, err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%s stats returned no rows", measure)
	}

	record := res.Records[0]
	dist := getMapFromRecord(record, "centralityDistribution")
	millis, _ := getInt64FromRecord(record, "computeMillis")
	return &CentralityStats{
		Measure: measure,
		Distribution: Distribution{
			Min:  getFloat64FromMap(dist, "min", 0),
			Max:  getFloat64FromMap(dist, "max", 0),
			Mean: getFloat64FromMap(dist, "mean", 0),
			P50:  getFloat64FromMap(dist, "p50", 0),
			P75:  getFloat64FromMap(dist, "p75", 0),
			P90:  getFloat64FromMap(dist, "p90", 0),
			P99:  getFloat64FromMap(dist, "p99", 0),
		},
		ComputeTime: time.Duration(millis) * time.Millisecond,
	}, nil
}

// TopCentrality streams the highest scoring users for a measure.
func (r *Repository) TopCentrality(ctx context.Context, measure CentralityMeasure, limit int) ([]ScoredNode, error) {
	procedure, err := centralityProcedure(measure)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		CALL %s.stream($graphName, $config)
		YIELD nodeId, score
		RETURN gds.util.asNode(nodeId).id AS userId, score
		ORDER BY score DESC, userId ASC
		LIMIT $limit
	`, procedure)

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{
		"graphName": r.projection,
		"config":    r.centralityConfig(measure),
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stream %s centrality: %w", measure, err)
	}
	return scoredNodes(res.Records), nil
}

// PageRank streams the top ranked users together with the query cost.
func (r *Repository) PageRank(ctx context.Context, limit int) ([]ScoredNode, QueryMetrics, error) {
	query := `
		CALL gds.pageRank.stream($graphName, {maxIterations: 20, dampingFactor: 0.85})
		YIELD nodeId, score
		RETURN gds.util.asNode(nodeId).id AS userId, score
		ORDER BY score DESC, userId ASC
		LIMIT $limit
	`

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{
		"graphName": r.projection,
		"limit":     limit,
	})
	if err != nil {
		return nil, QueryMetrics{}, fmt.Errorf("failed to stream pagerank: %w", err)
	}
	return scoredNodes(res.Records), QueryMetrics{ExecutionTime: res.Summary.ExecutionTime()}, nil
}

// Triangles returns every closed FOLLOWS triad (edge direction ignored)
// with the members' country codes.
func (r *Repository) Triangles(ctx context.Context) ([]Triangle, QueryMetrics, error) {
	query := `
		MATCH (a:User)-[:FOLLOWS]-(b:User)-[:FOLLOWS]-(c:User)-[:FOLLOWS]-(a)
		WHERE a.id < b.id AND b.id < c.id
		WITH DISTINCT a, b, c
		RETURN a.id AS a, b.id AS b, c.id AS c,
		       coalesce(a.country_code, 'Unknown') AS countryA,
		       coalesce(b.country_code, 'Unknown') AS countryB,
		       coalesce(c.country_code, 'Unknown') AS countryC
	`

	res, err := r.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, QueryMetrics{}, fmt.Errorf("failed to enumerate triangles: %w", err)
	}

	triangles := make([]Triangle, 0, len(res.Records))
	for _, record := range res.Records {
		a, okA := getInt64FromRecord(record, "a")
		b, okB := getInt64FromRecord(record, "b")
		c, okC := getInt64FromRecord(record, "c")
		if !okA || !okB || !okC {
			continue
		}
		triangles = append(triangles, Triangle{
			UserIDs: [3]int64{a, b, c},
			Countries: [3]string{
				getStringFromRecord(record, "countryA"),
				getStringFromRecord(record, "countryB"),
				getStringFromRecord(record, "countryC"),
			},
		})
	}
	return triangles, QueryMetrics{ExecutionTime: res.Summary.ExecutionTime()}, nil
}

var estimableProcedures = map[EstimateProcedure]bool{
	EstimateDegree:      true,
	EstimateBetweenness: true,
	EstimateCloseness:   true,
	EstimatePageRank:    true,
	EstimateLouvain:     true,
	EstimateLabelProp:   true,
	EstimateTriangles:   true,
	EstimateAllPairs:    true,
}

// Estimate asks the engine for the memory a procedure run would need.
func (r *Repository) Estimate(ctx context.Context, procedure EstimateProcedure) (*MemoryEstimate, error) {
	if !estimableProcedures[procedure] {
		return nil, fmt.Errorf("procedure %q cannot be estimated", procedure)
	}

	query := fmt.Sprintf(`
		CALL %s($graphName, {})
		YIELD bytesMin, bytesMax, requiredMemory
		RETURN bytesMin, bytesMax, requiredMemory
	`, procedure)

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{"graphName": r.projection})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate %s: %w", procedure, err)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("estimate for %s returned no rows", procedure)
	}

	record := res.Records[0]
	estimate := &MemoryEstimate{RequiredMemory: getStringFromRecord(record, "requiredMemory")}
	estimate.BytesMin, _ = getInt64FromRecord(record, "bytesMin")
	estimate.BytesMax, _ = getInt64FromRecord(record, "bytesMax")
	return estimate, nil
}

func scoredNodes(records []Record) []ScoredNode {
	nodes := make([]ScoredNode, 0, len(records))
	for _, record := range records {
		userID, okU := getInt64FromRecord(record, "userId")
		score, okS := getFloat64FromRecord(record, "score")
		if !okU || !okS {
			continue
		}
		nodes = append(nodes, ScoredNode{UserID: userID, Score: score})
	}
	return nodes
}
