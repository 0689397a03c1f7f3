package graph

import (
	"context"
	"fmt"
)

// RunQuery executes a read-only templated query and returns its rows
// together with the server timings. The projection name is always bound as
// $graphName.
func (r *Repository) RunQuery(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	bound := make(map[string]any, len(params)+1)
	for k, v := range params {
		bound[k] = v
	}
	if _, ok := bound["graphName"]; !ok {
		bound["graphName"] = r.projection
	}

	res, err := r.client.ExecuteRead(ctx, cypher, bound)
	if err != nil {
		return Result{}, fmt.Errorf("failed to run query: %w", err)
	}
	return res, nil
}
