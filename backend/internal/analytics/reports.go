package analytics

import (
	"cmp"
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lastfm-graph/backend/internal/graph"
	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// ReportLimits caps the list sizes of each report.
type ReportLimits struct {
	Centrality     int
	Ranking        int
	CommunityEdges int
	TriangleGroups int
}

// DefaultReportLimits returns the stock report sizes.
func DefaultReportLimits() ReportLimits {
	return ReportLimits{
		Centrality:     10,
		Ranking:        30,
		CommunityEdges: 20,
		TriangleGroups: 50,
	}
}

func (l ReportLimits) withDefaults() ReportLimits {
	d := DefaultReportLimits()
	if l.Centrality <= 0 {
		l.Centrality = d.Centrality
	}
	if l.Ranking <= 0 {
		l.Ranking = d.Ranking
	}
	if l.CommunityEdges <= 0 {
		l.CommunityEdges = d.CommunityEdges
	}
	if l.TriangleGroups <= 0 {
		l.TriangleGroups = d.TriangleGroups
	}
	return l
}

// ReportService turns algorithm engine output into enriched reports. Any
// algorithm failure fails the whole report; memory estimates are optional.
type ReportService struct {
	store    GraphStore
	engine   AlgorithmEngine
	enricher Enricher
	limits   ReportLimits
	logger   *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(store GraphStore, engine AlgorithmEngine, enricher Enricher, limits ReportLimits) *ReportService {
	return &ReportService{
		store:    store,
		engine:   engine,
		enricher: enricher,
		limits:   limits.withDefaults(),
		logger:   logger.Named("reports"),
	}
}

// ============================================================================
// Community detection
// ============================================================================

type communityRun struct {
	stats   *graph.CommunityStats
	members []graph.Membership
}

// CommunityReport runs louvain and label propagation and reports the
// heaviest inter-community edges of each.
func (s *ReportService) CommunityReport(ctx context.Context) (*CommunityReport, error) {
	start := time.Now()
	defer observeStage("community_report", "total", start)

	var (
		edges     []graph.Edge
		louvain   communityRun
		labelProp communityRun
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.store.FollowEdges(gctx)
		if err != nil {
			return apperrors.NewGraphFailure("community edges", err)
		}
		edges = e
		return nil
	})
	g.Go(func() error {
		run, err := s.runCommunity(gctx, graph.AlgorithmLouvain)
		louvain = run
		return err
	})
	g.Go(func() error {
		run, err := s.runCommunity(gctx, graph.AlgorithmLabelPropagation)
		labelProp = run
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &CommunityReport{
		Louvain:   s.communityResult(louvain, edges),
		LabelProp: s.communityResult(labelProp, edges),
	}

	s.logger.Info("Community report built",
		zap.Int64("louvain_communities", report.Louvain.Metrics.CommunityCount),
		zap.Int64("label_prop_communities", report.LabelProp.Metrics.CommunityCount),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (s *ReportService) runCommunity(ctx context.Context, algo graph.CommunityAlgorithm) (communityRun, error) {
	start := time.Now()
	defer observeStage("community_report", string(algo), start)

	stats, err := s.engine.CommunityStats(ctx, algo)
	if err != nil {
		return communityRun{}, apperrors.NewComputationFailed(string(algo)+" stats", err)
	}
	members, err := s.engine.CommunityMembership(ctx, algo)
	if err != nil {
		return communityRun{}, apperrors.NewComputationFailed(string(algo)+" membership", err)
	}
	return communityRun{stats: stats, members: members}, nil
}

func (s *ReportService) communityResult(run communityRun, edges []graph.Edge) CommunityResult {
	return CommunityResult{
		Algorithm: run.stats.Algorithm,
		Metrics: CommunityMetrics{
			CommunityCount: run.stats.CommunityCount,
			Modularity:     run.stats.Modularity,
			Iterations:     run.stats.Iterations,
			ComputeTimeMs:  millis(run.stats.ComputeTime),
		},
		Edges: crossingEdges(run.members, edges, s.limits.CommunityEdges),
	}
}

// crossingEdges counts follow edges between distinct communities, ignoring
// direction, and returns the heaviest pairs with both community sizes.
func crossingEdges(members []graph.Membership, edges []graph.Edge, limit int) []CommunityEdge {
	community := make(map[int64]int64, len(members))
	sizes := make(map[int64]int)
	for _, m := range members {
		community[m.UserID] = m.CommunityID
		sizes[m.CommunityID]++
	}

	counts := make(map[[2]int64]int)
	for _, e := range edges {
		cs, okS := community[e.Source]
		ct, okT := community[e.Target]
		if !okS || !okT || cs == ct {
			continue
		}
		counts[[2]int64{min(cs, ct), max(cs, ct)}]++
	}

	out := make([]CommunityEdge, 0, len(counts))
	for pair, n := range counts {
		out = append(out, CommunityEdge{
			Source:     pair[0],
			Target:     pair[1],
			Count:      n,
			SourceSize: sizes[pair[0]],
			TargetSize: sizes[pair[1]],
		})
	}
	slices.SortFunc(out, func(a, b CommunityEdge) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Target, b.Target),
		)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ============================================================================
// Centrality
// ============================================================================

var measureEstimates = map[graph.CentralityMeasure]graph.EstimateProcedure{
	graph.MeasureDegree:      graph.EstimateDegree,
	graph.MeasureBetweenness: graph.EstimateBetweenness,
	graph.MeasureCloseness:   graph.EstimateCloseness,
}

// CentralityReport runs degree, betweenness and closeness centrality.
func (s *ReportService) CentralityReport(ctx context.Context) (*CentralityReport, error) {
	start := time.Now()
	defer observeStage("centrality_report", "total", start)

	report := &CentralityReport{}
	targets := map[graph.CentralityMeasure]*CentralityResult{
		graph.MeasureDegree:      &report.Degree,
		graph.MeasureBetweenness: &report.Betweenness,
		graph.MeasureCloseness:   &report.Closeness,
	}

	g, gctx := errgroup.WithContext(ctx)
	for measure, dst := range targets {
		g.Go(func() error {
			res, err := s.runCentrality(gctx, measure)
			if err != nil {
				return err
			}
			*dst = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Centrality report built", zap.Duration("duration", time.Since(start)))
	return report, nil
}

func (s *ReportService) runCentrality(ctx context.Context, measure graph.CentralityMeasure) (*CentralityResult, error) {
	start := time.Now()
	defer observeStage("centrality_report", string(measure), start)

	stats, err := s.engine.CentralityStats(ctx, measure)
	if err != nil {
		return nil, apperrors.NewComputationFailed(string(measure)+" centrality", err)
	}
	top, err := s.engine.TopCentrality(ctx, measure, s.limits.Centrality)
	if err != nil {
		return nil, apperrors.NewComputationFailed(string(measure)+" ranking", err)
	}
	nodes, err := s.enrichScored(ctx, top, string(measure)+" enrichment")
	if err != nil {
		return nil, err
	}

	return &CentralityResult{
		Measure:        measure,
		Distribution:   stats.Distribution,
		ComputeTimeMs:  millis(stats.ComputeTime),
		TopNodes:       nodes,
		MemoryEstimate: bestEffortEstimate(ctx, s.engine, measureEstimates[measure], s.logger),
	}, nil
}

// ============================================================================
// Ranking
// ============================================================================

// RankingReport lists the top PageRank users. The memory estimate runs
// alongside the ranking and is dropped on failure.
func (s *ReportService) RankingReport(ctx context.Context) (*RankingReport, error) {
	start := time.Now()
	defer observeStage("ranking_report", "total", start)

	var (
		nodes    []graph.ScoredNode
		metrics  graph.QueryMetrics
		estimate *graph.MemoryEstimate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, metrics, err = s.engine.PageRank(gctx, s.limits.Ranking)
		if err != nil {
			return apperrors.NewComputationFailed("pagerank", err)
		}
		return nil
	})
	g.Go(func() error {
		estimate = bestEffortEstimate(gctx, s.engine, graph.EstimatePageRank, s.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	users, err := s.enrichScored(ctx, nodes, "pagerank enrichment")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ranking report built",
		zap.Int("users", len(users)),
		zap.Duration("execution_time", metrics.ExecutionTime),
	)
	return &RankingReport{
		Users: users,
		Metrics: ReportMetrics{
			ExecutionTimeMs: millis(metrics.ExecutionTime),
			MemoryEstimate:  estimate,
		},
	}, nil
}

// ============================================================================
// Triangles
// ============================================================================

// TriangleReport groups closed triads by the countries of their members.
func (s *ReportService) TriangleReport(ctx context.Context) (*TriangleReport, error) {
	start := time.Now()
	defer observeStage("triangle_report", "total", start)

	var (
		triangles []graph.Triangle
		metrics   graph.QueryMetrics
		estimate  *graph.MemoryEstimate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		triangles, metrics, err = s.engine.Triangles(gctx)
		if err != nil {
			return apperrors.NewComputationFailed("triangle enumeration", err)
		}
		return nil
	})
	g.Go(func() error {
		estimate = bestEffortEstimate(gctx, s.engine, graph.EstimateTriangles, s.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups, pairs := groupTriangles(triangles)
	if len(groups) > s.limits.TriangleGroups {
		groups = groups[:s.limits.TriangleGroups]
	}

	reportMetrics := ReportMetrics{ExecutionTimeMs: millis(metrics.ExecutionTime), MemoryEstimate: estimate}
	report := &TriangleReport{TotalTriangles: len(triangles)}
	report.Grouped.Data = groups
	report.Grouped.Metrics = reportMetrics
	report.Pairwise.Data = pairs
	report.Pairwise.Metrics = reportMetrics

	s.logger.Info("Triangle report built",
		zap.Int("triangles", len(triangles)),
		zap.Int("groups", len(groups)),
	)
	return report, nil
}

// groupTriangles counts triangles per sorted country triple and country
// pairs met inside triangles, both ordered by count descending.
func groupTriangles(triangles []graph.Triangle) ([]TriangleGroup, []CountryPair) {
	groupCounts := make(map[[3]string]int)
	pairCounts := make(map[[2]string]int)
	for _, t := range triangles {
		c := t.Countries
		slices.Sort(c[:])
		groupCounts[c]++
		pairCounts[[2]string{c[0], c[1]}]++
		pairCounts[[2]string{c[0], c[2]}]++
		pairCounts[[2]string{c[1], c[2]}]++
	}

	groups := make([]TriangleGroup, 0, len(groupCounts))
	for countries, n := range groupCounts {
		groups = append(groups, TriangleGroup{
			CountriesInvolved: countries,
			TriangleCount:     n,
			CountryGroup:      countryGroup(countries),
		})
	}
	slices.SortFunc(groups, func(a, b TriangleGroup) int {
		return cmp.Or(
			cmp.Compare(b.TriangleCount, a.TriangleCount),
			slices.Compare(a.CountriesInvolved[:], b.CountriesInvolved[:]),
		)
	})

	pairs := make([]CountryPair, 0, len(pairCounts))
	for pair, n := range pairCounts {
		pairs = append(pairs, CountryPair{CountryA: pair[0], CountryB: pair[1], Frequency: n})
	}
	slices.SortFunc(pairs, func(a, b CountryPair) int {
		return cmp.Or(
			cmp.Compare(b.Frequency, a.Frequency),
			cmp.Compare(a.CountryA, b.CountryA),
			cmp.Compare(a.CountryB, b.CountryB),
		)
	})
	return groups, pairs
}

// countryGroup classifies a sorted country triple.
func countryGroup(c [3]string) string {
	switch {
	case c[0] == c[2]:
		return GroupSingleCountry
	case c[0] == c[1] || c[1] == c[2]:
		return GroupTwoCountries
	}
	return GroupThreeCountries
}

// ============================================================================
// Helpers
// ============================================================================

func (s *ReportService) enrichScored(ctx context.Context, nodes []graph.ScoredNode, stage string) ([]ScoredProfile, error) {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.UserID
	}

	profiles, err := s.enricher.EnrichUsers(ctx, ids)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewGraphFailure(stage, err)
		}
		return nil, err
	}

	out := make([]ScoredProfile, len(nodes))
	for i, n := range nodes {
		out[i] = ScoredProfile{EnrichedProfile: profiles[i], Score: n.Score}
	}
	return out, nil
}

// bestEffortEstimate returns nil when the engine cannot estimate.
func bestEffortEstimate(ctx context.Context, est Estimator, procedure graph.EstimateProcedure, log *zap.Logger) *graph.MemoryEstimate {
	if procedure == "" {
		return nil
	}
	estimate, err := est.Estimate(ctx, procedure)
	if err != nil {
		log.Warn("Memory estimate unavailable",
			zap.String("procedure", string(procedure)),
			zap.Error(err),
		)
		return nil
	}
	return estimate
}
