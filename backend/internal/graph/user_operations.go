package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "lastfm-graph/backend/pkg/errors"
)

// ============================================================================
// User Lookup & Single-Hop Operations
// ============================================================================

// FetchUser loads the profile fields of a user. A missing node yields
// ErrNodeNotFound; a node with unset properties yields nil fields.
func (r *Repository) FetchUser(ctx context.Context, userID int64) (*User, error) {
	query := `
		MATCH (u:User {id: $userID})
		RETURN u.id AS id,
		       u.country_code AS country_code,
		       u.country_name AS country_name,
		       u.top_artists AS top_artists
	`

	res, err := r.client.ExecuteRead(ctx, query, map[string]any{"userID": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, apperrors.NewNodeNotFound(userID)
	}

	record := res.Records[0]
	id, ok := getInt64FromRecord(record, "id")
	if !ok {
		id = userID
	}
	artists := getStringSliceFromRecord(record, "top_artists")
	if len(artists) > MaxTopArtists {
		artists = artists[:MaxTopArtists]
	}

	r.logger.Debug("User fetched", zap.Int64("user_id", userID))
	return &User{
		ID:          id,
		CountryCode: getOptionalString(record, "country_code"),
		CountryName: getOptionalString(record, "country_name"),
		TopArtists:  artists,
	}, nil
}

// MaxTopArtists is the number of item ids retained per user.
const MaxTopArtists = 10

// Following returns the ids the user follows.
func (r *Repository) Following(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		MATCH (:User {id: $userID})-[:FOLLOWS]->(other:User)
		RETURN DISTINCT other.id AS id
		ORDER BY id
	`
	return r.collectIDs(ctx, "following", query, map[string]any{"userID": userID})
}

// Followers returns the ids following the user.
func (r *Repository) Followers(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		MATCH (:User {id: $userID})<-[:FOLLOWS]-(other:User)
		RETURN DISTINCT other.id AS id
		ORDER BY id
	`
	return r.collectIDs(ctx, "followers", query, map[string]any{"userID": userID})
}

// ConnectedUsers returns the ids adjacent to the user in either direction.
func (r *Repository) ConnectedUsers(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		MATCH (:User {id: $userID})-[:FOLLOWS]-(other:User)
		RETURN DISTINCT other.id AS id
		ORDER BY id
	`
	return r.collectIDs(ctx, "connected users", query, map[string]any{"userID": userID})
}

// CountUsers returns the number of User nodes.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	res, err := r.client.ExecuteRead(ctx, "MATCH (u:User) RETURN count(u) AS node_count", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	n, _ := getInt64FromRecord(res.Records[0], "node_count")
	return n, nil
}

// CommonNeighbors returns the users adjacent, in either direction, to both
// inputs. Neither input is ever part of the result.
func (r *Repository) CommonNeighbors(ctx context.Context, user1ID, user2ID int64) ([]int64, error) {
	query := `
		MATCH (:User {id: $user1ID})-[:FOLLOWS]-(common:User)-[:FOLLOWS]-(:User {id: $user2ID})
		WHERE common.id <> $user1ID AND common.id <> $user2ID
		RETURN DISTINCT common.id AS id
		ORDER BY id
	`
	return r.collectIDs(ctx, "common neighbors", query, map[string]any{
		"user1ID": user1ID,
		"user2ID": user2ID,
	})
}

func (r *Repository) collectIDs(ctx context.Context, what, query string, params map[string]any) ([]int64, error) {
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}

	ids := make([]int64, 0, len(res.Records))
	for _, record := range res.Records {
		if id, ok := getInt64FromRecord(record, "id"); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
