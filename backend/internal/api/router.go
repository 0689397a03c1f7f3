package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions configures the gin engine.
type RouterOptions struct {
	Production     bool
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter wires middleware and every route onto a new gin engine.
func NewRouter(h *Handlers, opts RouterOptions) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	log := opts.Logger
	if log == nil {
		log = h.logger
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/cache/stats", h.cacheStats)

	q := router.Group("/", timeout(opts.RequestTimeout))
	{
		// Neighborhood
		q.GET("/count_nodes", h.countNodes)
		q.GET("/connected_nodes/:user_id", h.connectedNodes)
		q.GET("/following/:user_id", h.following)
		q.GET("/followers/:user_id", h.followers)
		q.GET("/common_neighbors", h.commonNeighbors)

		// Paths
		q.GET("/shortest_path/:source/:target", h.shortestPath)
		q.GET("/all_shortest_paths/:source/:target", h.allShortestPaths)
		q.POST("/add_path", h.addPath)

		// Reports
		q.GET("/community-detection", report(h, h.reports.CommunityReport))
		q.GET("/centrality-analysis", report(h, h.reports.CentralityReport))
		q.GET("/top_pagerank_full", report(h, h.reports.RankingReport))
		q.GET("/full_triangle_analysis", report(h, h.reports.TriangleReport))

		// Benchmark
		q.GET("/all-pairs-shortest-paths", report(h, h.benchmark.CompareApproaches))
	}

	return router
}
