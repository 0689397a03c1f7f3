package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lastfm-graph/backend/internal/analytics"
	"lastfm-graph/backend/internal/enrichment"
	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// Neighborhood serves the one-hop queries.
type Neighborhood interface {
	Following(ctx context.Context, userID int64) ([]int64, error)
	Followers(ctx context.Context, userID int64) ([]int64, error)
	ConnectedNodes(ctx context.Context, userID int64) (*analytics.ConnectedNodesResult, error)
	CommonNeighbors(ctx context.Context, user1ID, user2ID int64) (*analytics.CommonNeighborsResult, error)
	CountNodes(ctx context.Context) (*analytics.NodeCount, error)
}

// Pathfinding serves path queries and path insertion.
type Pathfinding interface {
	ShortestPath(ctx context.Context, sourceID, targetID int64) (*analytics.PathResult, error)
	AllShortestPaths(ctx context.Context, sourceID, targetID int64) ([]analytics.PathResult, error)
	AddEdgePath(ctx context.Context, nodeIDs []int64) (*analytics.AddPathResult, error)
}

// Reports serves the whole-graph reports.
type Reports interface {
	CommunityReport(ctx context.Context) (*analytics.CommunityReport, error)
	CentralityReport(ctx context.Context) (*analytics.CentralityReport, error)
	RankingReport(ctx context.Context) (*analytics.RankingReport, error)
	TriangleReport(ctx context.Context) (*analytics.TriangleReport, error)
}

// Benchmark serves the all-pairs strategy comparison.
type Benchmark interface {
	CompareApproaches(ctx context.Context) (*analytics.Comparison, error)
}

// CacheStats reports enrichment cache residency.
type CacheStats interface {
	Stats() enrichment.Stats
}

// Handlers binds the analytics services to HTTP.
type Handlers struct {
	neighborhood Neighborhood
	paths        Pathfinding
	reports      Reports
	benchmark    Benchmark
	cache        CacheStats
	logger       *zap.Logger
}

// NewHandlers creates the HTTP handlers
func NewHandlers(n Neighborhood, p Pathfinding, r Reports, b Benchmark, cache CacheStats) *Handlers {
	return &Handlers{
		neighborhood: n,
		paths:        p,
		reports:      r,
		benchmark:    b,
		cache:        cache,
		logger:       logger.Named("api"),
	}
}

// AddPathRequest is the body of POST /add_path.
type AddPathRequest struct {
	Path []int64 `json:"path" binding:"required"`
}

func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidRequest(field, "must be an integer")
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	return parseID(c.Param(name), name)
}

func queryID(c *gin.Context, name string) (int64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, apperrors.NewInvalidRequest(name, "is required")
	}
	return parseID(raw, name)
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) connectedNodes(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.neighborhood.ConnectedNodes(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) countNodes(c *gin.Context) {
	res, err := h.neighborhood.CountNodes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) following(c *gin.Context) {
	h.adjacency(c, "following", h.neighborhood.Following)
}

func (h *Handlers) followers(c *gin.Context) {
	h.adjacency(c, "followers", h.neighborhood.Followers)
}

func (h *Handlers) adjacency(c *gin.Context, key string, fetch func(context.Context, int64) ([]int64, error)) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ids, err := fetch(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, key: ids, "count": len(ids)})
}

func (h *Handlers) commonNeighbors(c *gin.Context) {
	user1, err := queryID(c, "user1")
	if err != nil {
		h.writeError(c, err)
		return
	}
	user2, err := queryID(c, "user2")
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.neighborhood.CommonNeighbors(c.Request.Context(), user1, user2)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) endpoints(c *gin.Context) (int64, int64, bool) {
	source, err := pathID(c, "source")
	if err != nil {
		h.writeError(c, err)
		return 0, 0, false
	}
	target, err := pathID(c, "target")
	if err != nil {
		h.writeError(c, err)
		return 0, 0, false
	}
	return source, target, true
}

func (h *Handlers) shortestPath(c *gin.Context) {
	source, target, ok := h.endpoints(c)
	if !ok {
		return
	}
	res, err := h.paths.ShortestPath(c.Request.Context(), source, target)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) allShortestPaths(c *gin.Context) {
	source, target, ok := h.endpoints(c)
	if !ok {
		return
	}
	paths, err := h.paths.AllShortestPaths(c.Request.Context(), source, target)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source": source,
		"target": target,
		"paths":  paths,
		"count":  len(paths),
	})
}

func (h *Handlers) addPath(c *gin.Context) {
	var req AddPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.NewInvalidRequest("body", err.Error()))
		return
	}
	res, err := h.paths.AddEdgePath(c.Request.Context(), req.Path)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// report adapts a parameterless report call to a handler.
func report[T any](h *Handlers, run func(context.Context) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := run(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handlers) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}
