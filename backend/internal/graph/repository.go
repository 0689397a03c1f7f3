package graph

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"lastfm-graph/backend/pkg/logger"
)

// DefaultProjection is the GDS projection name used when none is configured.
const DefaultProjection = "lastfm"

// Repository handles all Neo4j database operations: plain Cypher for the
// store and GDS procedures for the algorithm engine.
type Repository struct {
	client     Client
	logger     *zap.Logger
	projection string
	sampleSize int

	// writeGen counts edge writes that created something; projectedGen is
	// the writeGen the projection was last built from.
	projectionMu sync.Mutex
	writeGen     atomic.Uint64
	projectedGen uint64
}

// Option customises a Repository.
type Option func(*Repository)

// WithProjection sets the GDS projection the algorithm calls run against.
func WithProjection(name string) Option {
	return func(r *Repository) {
		if name != "" {
			r.projection = name
		}
	}
}

// WithBetweennessSampleSize switches betweenness centrality to the sampled
// variant. Zero keeps the exact computation.
func WithBetweennessSampleSize(n int) Option {
	return func(r *Repository) {
		r.sampleSize = n
	}
}

// WithLogger overrides the repository logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// NewRepository creates a new graph repository
func NewRepository(client Client, opts ...Option) *Repository {
	r := &Repository{
		client:     client,
		logger:     logger.Named("graph"),
		projection: DefaultProjection,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Projection returns the GDS projection name in use.
func (r *Repository) Projection() string {
	return r.projection
}

// Ping verifies the store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close(ctx)
}
