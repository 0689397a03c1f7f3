package graph

import (
	"context"
	"errors"
	"time"
)

// Client defines the minimal contract the repository needs from the
// underlying graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
	Summary Summary
}

// Summary holds the server-reported timings of a query.
type Summary struct {
	AvailableAfter time.Duration
	ConsumedAfter  time.Duration
}

// ExecutionTime is the total time the server reports for producing and
// streaming the result.
func (s Summary) ExecutionTime() time.Duration {
	return s.AvailableAfter + s.ConsumedAfter
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
