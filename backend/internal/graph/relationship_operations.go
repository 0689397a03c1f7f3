package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// User-to-User Relationship Operations
// ============================================================================

// MergeFollows creates each FOLLOWS edge unless it already exists and
// returns how many edges were newly created. Endpoints are matched, never
// created, so an edge with a missing endpoint is silently skipped. New
// edges mark the algorithm projection stale.
func (r *Repository) MergeFollows(ctx context.Context, edges []Edge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	pairs := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		pairs = append(pairs, map[string]any{"source": e.Source, "target": e.Target})
	}

	query := `
		UNWIND $pairs AS pair
		MATCH (a:User {id: pair.source})
		MATCH (b:User {id: pair.target})
		OPTIONAL MATCH (a)-[existing:FOLLOWS]->(b)
		WITH a, b, existing
		MERGE (a)-[:FOLLOWS]->(b)
		RETURN count(CASE WHEN existing IS NULL THEN 1 END) AS created
	`

	res, err := r.client.ExecuteWrite(ctx, query, map[string]any{"pairs": pairs})
	if err != nil {
		return 0, fmt.Errorf("failed to merge follows: %w", err)
	}

	created := 0
	if len(res.Records) > 0 {
		if n, ok := getInt64FromRecord(res.Records[0], "created"); ok {
			created = int(n)
		}
	}

	if created > 0 {
		r.writeGen.Add(1)
	}

	r.logger.Info("Follow edges merged",
		zap.Int("requested", len(edges)),
		zap.Int("created", created),
	)
	return created, nil
}

// FollowEdges returns every FOLLOWS edge in the graph.
func (r *Repository) FollowEdges(ctx context.Context) ([]Edge, error) {
	query := `
		MATCH (a:User)-[:FOLLOWS]->(b:User)
		RETURN a.id AS source, b.id AS target
	`

	res, err := r.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load follow edges: %w", err)
	}

	edges := make([]Edge, 0, len(res.Records))
	for _, record := range res.Records {
		source, okS := getInt64FromRecord(record, "source")
		target, okT := getInt64FromRecord(record, "target")
		if !okS || !okT {
			continue
		}
		edges = append(edges, Edge{Source: source, Target: target})
	}
	return edges, nil
}
