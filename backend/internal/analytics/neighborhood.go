package analytics

import (
	"context"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// NeighborhoodService answers single-hop questions about a user.
type NeighborhoodService struct {
	store    GraphStore
	enricher Enricher
	logger   *zap.Logger
}

// NewNeighborhoodService creates a new neighborhood service
func NewNeighborhoodService(store GraphStore, enricher Enricher) *NeighborhoodService {
	return &NeighborhoodService{
		store:    store,
		enricher: enricher,
		logger:   logger.Named("neighborhood"),
	}
}

// Following returns the ids the user follows in ascending order.
func (s *NeighborhoodService) Following(ctx context.Context, userID int64) ([]int64, error) {
	if _, err := s.enricher.ResolveUserProfile(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.store.Following(ctx, userID)
	if err != nil {
		return nil, apperrors.NewGraphFailure("following lookup", err)
	}
	return orderedSet(ids), nil
}

// Followers returns the ids following the user in ascending order.
func (s *NeighborhoodService) Followers(ctx context.Context, userID int64) ([]int64, error) {
	if _, err := s.enricher.ResolveUserProfile(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.store.Followers(ctx, userID)
	if err != nil {
		return nil, apperrors.NewGraphFailure("followers lookup", err)
	}
	return orderedSet(ids), nil
}

// ConnectedNodes returns the enriched user and every id adjacent to it in
// either direction.
func (s *NeighborhoodService) ConnectedNodes(ctx context.Context, userID int64) (*ConnectedNodesResult, error) {
	user, err := s.enricher.EnrichUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var connected, following, followers []int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.store.ConnectedUsers(gctx, userID)
		if err != nil {
			return apperrors.NewGraphFailure("connected nodes lookup", err)
		}
		connected = orderedSet(ids)
		return nil
	})
	g.Go(func() error {
		ids, err := s.store.Following(gctx, userID)
		if err != nil {
			return apperrors.NewGraphFailure("following lookup", err)
		}
		following = orderedSet(ids)
		return nil
	})
	g.Go(func() error {
		ids, err := s.store.Followers(gctx, userID)
		if err != nil {
			return apperrors.NewGraphFailure("followers lookup", err)
		}
		followers = orderedSet(ids)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ConnectedNodesResult{
		User:           *user,
		ConnectedNodes: connected,
		Following:      following,
		Followers:      followers,
		Count:          len(connected),
	}, nil
}

// CountNodes returns the number of users in the graph.
func (s *NeighborhoodService) CountNodes(ctx context.Context) (*NodeCount, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, apperrors.NewGraphFailure("node count", err)
	}
	return &NodeCount{NodeCount: n}, nil
}

// CommonNeighbors returns the enriched users adjacent to both inputs. The
// inputs themselves never appear in the result.
func (s *NeighborhoodService) CommonNeighbors(ctx context.Context, user1ID, user2ID int64) (*CommonNeighborsResult, error) {
	user1, err := s.enricher.EnrichUser(ctx, user1ID)
	if err != nil {
		return nil, err
	}
	user2, err := s.enricher.EnrichUser(ctx, user2ID)
	if err != nil {
		return nil, err
	}

	ids, err := s.store.CommonNeighbors(ctx, user1ID, user2ID)
	if err != nil {
		return nil, apperrors.NewGraphFailure("common neighbors lookup", err)
	}
	ids = slices.DeleteFunc(orderedSet(ids), func(id int64) bool {
		return id == user1ID || id == user2ID
	})

	neighbors, err := s.enricher.EnrichUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Common neighbors resolved",
		zap.Int64("user1_id", user1ID),
		zap.Int64("user2_id", user2ID),
		zap.Int("count", len(neighbors)),
	)
	return &CommonNeighborsResult{
		User1:           *user1,
		User2:           *user2,
		CommonNeighbors: neighbors,
		Count:           len(neighbors),
	}, nil
}

// orderedSet sorts ids ascending and drops duplicates.
func orderedSet(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []int64{}
	}
	return out
}
