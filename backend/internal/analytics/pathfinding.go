package analytics

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"lastfm-graph/backend/internal/enrichment"
	"lastfm-graph/backend/internal/graph"
	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// PathfindingService finds and creates paths between users.
type PathfindingService struct {
	store    GraphStore
	engine   AlgorithmEngine
	enricher Enricher
	logger   *zap.Logger
}

// NewPathfindingService creates a new pathfinding service
func NewPathfindingService(store GraphStore, engine AlgorithmEngine, enricher Enricher) *PathfindingService {
	return &PathfindingService{
		store:    store,
		engine:   engine,
		enricher: enricher,
		logger:   logger.Named("paths"),
	}
}

func (s *PathfindingService) requireUsers(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if _, err := s.enricher.ResolveUserProfile(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ShortestPath returns the cheapest path reported by the algorithm engine,
// or a NoPathFound result when the users are not connected.
func (s *PathfindingService) ShortestPath(ctx context.Context, sourceID, targetID int64) (*PathResult, error) {
	if err := s.requireUsers(ctx, sourceID, targetID); err != nil {
		return nil, err
	}

	if sourceID == targetID {
		return s.buildPath(ctx, sourceID, targetID, graph.Path{NodeIDs: []int64{sourceID}})
	}

	path, err := s.engine.ShortestPath(ctx, sourceID, targetID)
	if err != nil {
		return nil, apperrors.NewComputationFailed("shortest path", err)
	}
	if path == nil {
		s.logger.Debug("No path found",
			zap.Int64("source", sourceID),
			zap.Int64("target", targetID),
		)
		return NoPathFound(sourceID, targetID), nil
	}
	return s.buildPath(ctx, sourceID, targetID, *path)
}

// AllShortestPaths returns every path tied at the minimum length, in the
// order the engine yields them.
func (s *PathfindingService) AllShortestPaths(ctx context.Context, sourceID, targetID int64) ([]PathResult, error) {
	if err := s.requireUsers(ctx, sourceID, targetID); err != nil {
		return nil, err
	}

	if sourceID == targetID {
		p, err := s.buildPath(ctx, sourceID, targetID, graph.Path{NodeIDs: []int64{sourceID}})
		if err != nil {
			return nil, err
		}
		return []PathResult{*p}, nil
	}

	paths, err := s.engine.AllShortestPaths(ctx, sourceID, targetID)
	if err != nil {
		return nil, apperrors.NewComputationFailed("all shortest paths", err)
	}

	shortest := -1
	for _, p := range paths {
		if shortest < 0 || p.Length() < shortest {
			shortest = p.Length()
		}
	}

	results := make([]PathResult, 0, len(paths))
	for _, p := range paths {
		if p.Length() != shortest {
			continue
		}
		r, err := s.buildPath(ctx, sourceID, targetID, p)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

func (s *PathfindingService) buildPath(ctx context.Context, sourceID, targetID int64, p graph.Path) (*PathResult, error) {
	nodes, err := s.enricher.EnrichUsers(ctx, p.NodeIDs)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// A node vanished between the path query and enrichment
			return nil, apperrors.NewGraphFailure("path enrichment", err)
		}
		return nil, err
	}
	if nodes == nil {
		nodes = []enrichment.EnrichedProfile{}
	}
	return &PathResult{
		Source:  sourceID,
		Target:  targetID,
		Found:   true,
		NodeIDs: p.NodeIDs,
		Length:  p.Length(),
		Cost:    p.Cost,
		Nodes:   nodes,
	}, nil
}

// AddEdgePath creates a FOLLOWS edge between every consecutive pair of ids.
// Every id must name an existing user; otherwise nothing is created.
// Existing edges are left untouched. The algorithm projection is refreshed
// before returning so ShortestPath and the reports see the new edges.
func (s *PathfindingService) AddEdgePath(ctx context.Context, nodeIDs []int64) (*AddPathResult, error) {
	if len(nodeIDs) < 2 {
		return nil, apperrors.NewInvalidRequest("path", "at least 2 node ids are required")
	}

	checked := make(map[int64]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, ok := checked[id]; ok {
			continue
		}
		if _, err := s.enricher.ResolveUserProfile(ctx, id); err != nil {
			return nil, err
		}
		checked[id] = struct{}{}
	}

	seen := make(map[graph.Edge]struct{}, len(nodeIDs)-1)
	edges := make([]graph.Edge, 0, len(nodeIDs)-1)
	for i := 0; i+1 < len(nodeIDs); i++ {
		e := graph.Edge{Source: nodeIDs[i], Target: nodeIDs[i+1]}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		edges = append(edges, e)
	}

	created, err := s.store.MergeFollows(ctx, edges)
	if err != nil {
		return nil, apperrors.NewGraphFailure("edge creation", err)
	}

	// A no-op unless this or an earlier call left the projection stale, so a
	// retry after a failed refresh still catches up.
	if _, err := s.engine.RefreshProjection(ctx); err != nil {
		return nil, apperrors.NewComputationFailed("projection refresh", err)
	}

	s.logger.Info("Edge path added",
		zap.String("path", formatPath(nodeIDs)),
		zap.Int("edges", len(edges)),
		zap.Int("created", created),
	)
	return &AddPathResult{NodeIDs: nodeIDs, Requested: len(edges), Created: created}, nil
}

func formatPath(ids []int64) string {
	buf := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, "->"...)
		}
		buf = strconv.AppendInt(buf, id, 10)
	}
	return string(buf)
}
