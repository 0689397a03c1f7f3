package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lastfm-graph/backend/internal/analytics"
	"lastfm-graph/backend/internal/enrichment"
	apperrors "lastfm-graph/backend/pkg/errors"
)

type fakeServices struct {
	err       error
	lastPath  []int64
	deadline  bool
	lastPair  [2]int64
	following []int64
}

func (f *fakeServices) Following(ctx context.Context, userID int64) ([]int64, error) {
	_, f.deadline = ctx.Deadline()
	return f.following, f.err
}

func (f *fakeServices) Followers(_ context.Context, userID int64) ([]int64, error) {
	return []int64{}, f.err
}

func (f *fakeServices) ConnectedNodes(_ context.Context, userID int64) (*analytics.ConnectedNodesResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.ConnectedNodesResult{
		User:           enrichment.EnrichedProfile{ID: userID, TopArtists: []enrichment.ItemName{}},
		ConnectedNodes: []int64{2, 3},
		Count:          2,
	}, nil
}

func (f *fakeServices) CountNodes(context.Context) (*analytics.NodeCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.NodeCount{NodeCount: 42}, nil
}

func (f *fakeServices) CommonNeighbors(_ context.Context, user1ID, user2ID int64) (*analytics.CommonNeighborsResult, error) {
	f.lastPair = [2]int64{user1ID, user2ID}
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.CommonNeighborsResult{CommonNeighbors: []enrichment.EnrichedProfile{}}, nil
}

func (f *fakeServices) ShortestPath(_ context.Context, sourceID, targetID int64) (*analytics.PathResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return analytics.NoPathFound(sourceID, targetID), nil
}

func (f *fakeServices) AllShortestPaths(_ context.Context, sourceID, targetID int64) ([]analytics.PathResult, error) {
	return []analytics.PathResult{}, f.err
}

func (f *fakeServices) AddEdgePath(_ context.Context, nodeIDs []int64) (*analytics.AddPathResult, error) {
	f.lastPath = nodeIDs
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.AddPathResult{NodeIDs: nodeIDs, Requested: len(nodeIDs) - 1, Created: len(nodeIDs) - 1}, nil
}

func (f *fakeServices) CommunityReport(context.Context) (*analytics.CommunityReport, error) {
	return &analytics.CommunityReport{}, f.err
}

func (f *fakeServices) CentralityReport(context.Context) (*analytics.CentralityReport, error) {
	return &analytics.CentralityReport{}, f.err
}

func (f *fakeServices) RankingReport(context.Context) (*analytics.RankingReport, error) {
	return &analytics.RankingReport{Users: []analytics.ScoredProfile{}}, f.err
}

func (f *fakeServices) TriangleReport(context.Context) (*analytics.TriangleReport, error) {
	return &analytics.TriangleReport{}, f.err
}

func (f *fakeServices) CompareApproaches(context.Context) (*analytics.Comparison, error) {
	return &analytics.Comparison{}, f.err
}

func (f *fakeServices) Stats() enrichment.Stats {
	return enrichment.Stats{Profiles: 3, Names: 7, Resolver: "identity"}
}

func newTestRouter(f *fakeServices) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(f, f, f, f, f)
	return NewRouter(h, RouterOptions{RequestTimeout: time.Second})
}

func do(t *testing.T, router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	router := newTestRouter(&fakeServices{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestConnectedNodes(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodGet, "/connected_nodes/1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(1), body["user"].(map[string]any)["id"])
}

func TestCountNodes(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodGet, "/count_nodes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), decode(t, w)["node_count"])
}

func TestFollowing_RequestHasDeadline(t *testing.T) {
	f := &fakeServices{following: []int64{4, 9}}
	w := do(t, newTestRouter(f), http.MethodGet, "/following/1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{float64(4), float64(9)}, decode(t, w)["following"])
	assert.True(t, f.deadline)
}

func TestCommonNeighbors_QueryParams(t *testing.T) {
	f := &fakeServices{}
	router := newTestRouter(f)

	w := do(t, router, http.MethodGet, "/common_neighbors?user1=5&user2=8", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int64{5, 8}, f.lastPair)

	w = do(t, router, http.MethodGet, "/common_neighbors?user1=5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestShortestPath_NoPathIsOK(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodGet, "/shortest_path/1/2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["found"])
	assert.Equal(t, []any{}, body["path"])
}

func TestAddPath(t *testing.T) {
	f := &fakeServices{}
	router := newTestRouter(f)

	w := do(t, router, http.MethodPost, "/add_path", []byte(`{"path":[1,2,3]}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{1, 2, 3}, f.lastPath)
	assert.Equal(t, float64(2), decode(t, w)["edges_created"])

	w = do(t, router, http.MethodPost, "/add_path", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidPathParam(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodGet, "/followers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"not found", apperrors.NewNodeNotFound(42), http.StatusNotFound, ""},
		{"invalid", apperrors.NewInvalidRequest("path", "too short"), http.StatusBadRequest, ""},
		{"collaborator", apperrors.NewGraphFailure("followers lookup", fmt.Errorf("bolt: connection reset")), http.StatusBadGateway, "followers lookup"},
		{"timeout", apperrors.NewComputationFailed("pagerank", context.DeadlineExceeded), http.StatusGatewayTimeout, "pagerank"},
		{"cancelled", apperrors.NewGraphFailure("pagerank", context.Canceled), statusClientClosedRequest, "pagerank"},
		{"untyped", fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestRouter(&fakeServices{err: tt.err}), http.MethodGet, "/top_pagerank_full", nil)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["request_id"])
			if tt.stage != "" {
				assert.Equal(t, tt.stage, body["stage"])
			}
		})
	}
}

func TestReportRoutes(t *testing.T) {
	router := newTestRouter(&fakeServices{})
	for _, path := range []string{
		"/community-detection",
		"/centrality-analysis",
		"/top_pagerank_full",
		"/full_triangle_analysis",
		"/all-pairs-shortest-paths",
		"/all_shortest_paths/1/2",
	} {
		w := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestCacheStats(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodGet, "/cache/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["profiles"])
	assert.Equal(t, "identity", body["resolver"])
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestRouter(&fakeServices{}), http.MethodOptions, "/add_path", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeServices{})
	do(t, router, http.MethodGet, "/health", nil)

	w := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lastfm_graph_http_requests_total")
}
