package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lastfm-graph/backend/internal/api"
	"lastfm-graph/backend/internal/graph"
	"lastfm-graph/backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		NameResolver:          config.ResolverIdentity,
		NameLookupTimeout:     time.Second,
		NameLookupConcurrency: 2,
		CachePolicy:           config.CachePolicyLRU,
		CacheCapacity:         16,
		APSPLimit:             10,
		APSPMaxDepth:          3,
	}
}

func testRouter(client *graph.MemoryClient) http.Handler {
	gin.SetMode(gin.TestMode)
	repo := graph.NewRepository(client)
	return api.NewRouter(newHandlers(testConfig(), repo), api.RouterOptions{RequestTimeout: time.Second})
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(graph.NewMemoryClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestConnectedNodesEndToEnd(t *testing.T) {
	client := graph.NewMemoryClient()
	client.Route("MATCH (u:User {id: $userID})", graph.Result{Records: []graph.Record{{
		"country_code": "PH",
		"country_name": "Philippines",
		"top_artists":  []any{"1989", "77"},
	}}}, nil)
	client.Route("-[:FOLLOWS]-(other:User)", graph.Result{Records: []graph.Record{
		{"id": int64(9)}, {"id": int64(4)},
	}}, nil)
	router := testRouter(client)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/connected_nodes/12", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		User struct {
			ID         int64 `json:"id"`
			TopArtists []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"top_artists"`
		} `json:"user"`
		ConnectedNodes []int64 `json:"connected_nodes"`
		Count          int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, int64(12), response.User.ID)
	assert.Equal(t, []int64{4, 9}, response.ConnectedNodes)
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.User.TopArtists, 2)
	assert.Equal(t, "Unknown Artist (1989)", response.User.TopArtists[0].Name)
}

func TestUnknownUserIsNotFound(t *testing.T) {
	router := testRouter(graph.NewMemoryClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/following/404", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddPath_InvalidRequest(t *testing.T) {
	router := testRouter(graph.NewMemoryClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/add_path", nil)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
