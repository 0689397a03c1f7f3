package analytics

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lastfm-graph/backend/internal/graph"
	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// StrategyKind tags the closed set of all-pairs query descriptors.
type StrategyKind string

const (
	StrategyNative    StrategyKind = "native"
	StrategyTraversal StrategyKind = "traversal"
)

// Columns every all-pairs descriptor must return.
var distanceColumns = []string{"source", "target", "distance"}

// QueryDescriptor is a named, parameterised all-pairs query. Build one with
// NativeAllPairs or TraversalAllPairs and check it with Validate.
type QueryDescriptor struct {
	Kind     StrategyKind
	Cypher   string
	Params   map[string]any
	Columns  []string
	Estimate graph.EstimateProcedure
	Limit    int
	MaxDepth int
}

// NativeAllPairs uses the engine's all-pairs shortest path primitive.
// Unreachable pairs are filtered and each unordered pair is reported once.
func NativeAllPairs(limit int) QueryDescriptor {
	return QueryDescriptor{
		Kind: StrategyNative,
		Cypher: `
			CALL gds.allShortestPaths.stream($graphName)
			YIELD sourceNodeId, targetNodeId, distance
			WITH gds.util.asNode(sourceNodeId).id AS source,
			     gds.util.asNode(targetNodeId).id AS target,
			     distance
			WHERE source < target AND distance < gds.util.infinity()
			RETURN source, target, distance
			ORDER BY source, target
			LIMIT $limit
		`,
		Params:   map[string]any{"limit": limit},
		Columns:  distanceColumns,
		Estimate: graph.EstimateAllPairs,
		Limit:    limit,
	}
}

// TraversalAllPairs runs a bounded shortestPath traversal for every
// source < target pair.
func TraversalAllPairs(limit, maxDepth int) QueryDescriptor {
	return QueryDescriptor{
		Kind: StrategyTraversal,
		// Variable length bounds cannot be parameters
		Cypher: fmt.Sprintf(`
			MATCH (a:User), (b:User)
			WHERE a.id < b.id
			MATCH p = shortestPath((a)-[:FOLLOWS*..%d]->(b))
			RETURN a.id AS source, b.id AS target, length(p) AS distance
			ORDER BY source, target
			LIMIT $limit
		`, maxDepth),
		Params:   map[string]any{"limit": limit},
		Columns:  distanceColumns,
		Limit:    limit,
		MaxDepth: maxDepth,
	}
}

var returnClause = regexp.MustCompile(`(?is)\bRETURN\b(.*)$`)

func notIdentifier(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// Validate fails fast on descriptors that could only yield empty statistics.
func (d QueryDescriptor) Validate() error {
	switch d.Kind {
	case StrategyNative:
	case StrategyTraversal:
		if d.MaxDepth <= 0 {
			return apperrors.NewInvalidRequest("max_depth", "must be positive")
		}
	default:
		return apperrors.NewInvalidRequest("strategy", fmt.Sprintf("unknown strategy %q", d.Kind))
	}

	if strings.TrimSpace(d.Cypher) == "" {
		return apperrors.NewInvalidRequest("query", "empty query")
	}
	if d.Limit <= 0 {
		return apperrors.NewInvalidRequest("limit", "must be positive")
	}

	m := returnClause.FindStringSubmatch(d.Cypher)
	if m == nil {
		return apperrors.NewInvalidRequest("query", "missing RETURN clause")
	}
	yielded := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(m[1], notIdentifier) {
		yielded[tok] = struct{}{}
	}
	for _, col := range d.Columns {
		if _, ok := yielded[col]; !ok {
			return apperrors.NewInvalidRequest("query", fmt.Sprintf("RETURN does not yield column %q", col))
		}
	}
	return nil
}

// BenchmarkService runs the all-pairs strategies and shapes their results.
type BenchmarkService struct {
	runner   QueryRunner
	limit    int
	maxDepth int
	logger   *zap.Logger
}

// NewBenchmarkService creates a new benchmark service
func NewBenchmarkService(runner QueryRunner, limit, maxDepth int) *BenchmarkService {
	return &BenchmarkService{
		runner:   runner,
		limit:    limit,
		maxDepth: maxDepth,
		logger:   logger.Named("benchmark"),
	}
}

// RunStrategy executes a descriptor and returns its rows, cost and
// statistics. Rows missing any field are skipped.
func (s *BenchmarkService) RunStrategy(ctx context.Context, d QueryDescriptor) (*StrategyResult, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer observeStage("benchmark", string(d.Kind), start)

	var (
		res      graph.Result
		estimate *graph.MemoryEstimate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = s.runner.RunQuery(gctx, d.Cypher, d.Params)
		if err != nil {
			return apperrors.NewComputationFailed(string(d.Kind)+" all-pairs", err)
		}
		return nil
	})
	g.Go(func() error {
		estimate = bestEffortEstimate(gctx, s.runner, d.Estimate, s.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]DistanceTriple, 0, len(res.Records))
	distances := make([]float64, 0, len(res.Records))
	skipped := 0
	for _, record := range res.Records {
		t, ok := tripleFromRecord(record)
		if !ok {
			skipped++
			continue
		}
		paths = append(paths, t)
		distances = append(distances, t.Distance)
	}

	result := &StrategyResult{
		Strategy:   string(d.Kind),
		Paths:      paths,
		Statistics: ComputeDistanceStats(distances),
		Metrics: StrategyMetrics{
			ExecutionTimeMs: millis(res.Summary.ExecutionTime()),
			MemoryEstimate:  estimate,
		},
	}
	if estimate != nil {
		bytes := estimate.BytesMax
		result.Metrics.EstimatedMemoryBytes = &bytes
	}

	s.logger.Info("Strategy completed",
		zap.String("strategy", string(d.Kind)),
		zap.Int("paths", len(paths)),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// CompareApproaches runs the traversal and native strategies concurrently
// and returns both bundles as produced.
func (s *BenchmarkService) CompareApproaches(ctx context.Context) (*Comparison, error) {
	var out Comparison

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.RunStrategy(gctx, TraversalAllPairs(s.limit, s.maxDepth))
		if err != nil {
			return err
		}
		out.Traversal = *r
		return nil
	})
	g.Go(func() error {
		r, err := s.RunStrategy(gctx, NativeAllPairs(s.limit))
		if err != nil {
			return err
		}
		out.Native = *r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func tripleFromRecord(record graph.Record) (DistanceTriple, bool) {
	source, okS := asInt64(record["source"])
	target, okT := asInt64(record["target"])
	distance, okD := asFloat64(record["distance"])
	if !okS || !okT || !okD {
		return DistanceTriple{}, false
	}
	return DistanceTriple{Source: source, Target: target, Distance: distance}, true
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
