package graph

import (
	"context"
	"fmt"
)

// ============================================================================
// Path Operations
// ============================================================================

// ShortestPath runs Dijkstra on the projection. It returns nil, nil when the
// two users are not connected.
func (r *Repository) ShortestPath(ctx context.Context, sourceID, targetID int64) (*Path, error) {
	query := `
		MATCH (source:User {id: $source}), (target:User {id: $target})
		CALL gds.shortestPath.dijkstra.stream($graphName, {
			sourceNode: source,
			targetNode: target
		})
		YIELD path, totalCost
		RETURN [node IN nodes(path) | node.id] AS nodeIds,
		       totalCost AS pathLength
	`

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{
		"graphName": r.projection,
		"source":    sourceID,
		"target":    targetID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run dijkstra: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	record := res.Records[0]
	nodeIDs, ok := getInt64SliceFromRecord(record, "nodeIds")
	if !ok {
		return nil, fmt.Errorf("malformed node ids in dijkstra result: %v", record["nodeIds"])
	}
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	cost, _ := getFloat64FromRecord(record, "pathLength")
	return &Path{NodeIDs: nodeIDs, Cost: cost}, nil
}

// AllShortestPaths enumerates every directed FOLLOWS path of minimum length
// between the two users, in the order the engine yields them.
func (r *Repository) AllShortestPaths(ctx context.Context, sourceID, targetID int64) ([]Path, error) {
	query := `
		MATCH (source:User {id: $source}), (target:User {id: $target})
		MATCH p = allShortestPaths((source)-[:FOLLOWS*]->(target))
		RETURN [node IN nodes(p) | node.id] AS nodeIds,
		       length(p) AS pathLength
	`

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{
		"source": sourceID,
		"target": targetID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate shortest paths: %w", err)
	}

	paths := make([]Path, 0, len(res.Records))
	for _, record := range res.Records {
		nodeIDs, ok := getInt64SliceFromRecord(record, "nodeIds")
		if !ok {
			return nil, fmt.Errorf("malformed node ids in shortest path: %v", record["nodeIds"])
		}
		if len(nodeIDs) == 0 {
			continue
		}
		length, _ := getFloat64FromRecord(record, "pathLength")
		paths = append(paths, Path{NodeIDs: nodeIDs, Cost: length})
	}
	return paths, nil
}
