package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lastfm-graph/backend/internal/graph"
	apperrors "lastfm-graph/backend/pkg/errors"
)

func newReports(g *fakeGraph) *ReportService {
	return NewReportService(g, g, g.enricher(), ReportLimits{})
}

func communityGraph() *fakeGraph {
	g := newFakeGraph(1, 2, 3, 4, 5, 6).addEdges(
		graph.Edge{Source: 1, Target: 2},
		graph.Edge{Source: 2, Target: 3},
		graph.Edge{Source: 3, Target: 4},
		graph.Edge{Source: 4, Target: 3},
		graph.Edge{Source: 2, Target: 5},
		graph.Edge{Source: 5, Target: 6},
		graph.Edge{Source: 6, Target: 1},
	)
	modularity := 0.42
	g.communityStats[graph.AlgorithmLouvain] = &graph.CommunityStats{
		Algorithm: graph.AlgorithmLouvain, CommunityCount: 3, Modularity: &modularity,
		Iterations: 2, ComputeTime: 15 * time.Millisecond,
	}
	g.communityStats[graph.AlgorithmLabelPropagation] = &graph.CommunityStats{
		Algorithm: graph.AlgorithmLabelPropagation, CommunityCount: 2, Iterations: 5,
	}
	// louvain: {1,2} {3,4} {5,6}
	g.membership[graph.AlgorithmLouvain] = []graph.Membership{
		{UserID: 1, CommunityID: 10}, {UserID: 2, CommunityID: 10},
		{UserID: 3, CommunityID: 20}, {UserID: 4, CommunityID: 20},
		{UserID: 5, CommunityID: 30}, {UserID: 6, CommunityID: 30},
	}
	// label propagation: {1,2,5,6} {3,4}
	g.membership[graph.AlgorithmLabelPropagation] = []graph.Membership{
		{UserID: 1, CommunityID: 1}, {UserID: 2, CommunityID: 1},
		{UserID: 5, CommunityID: 1}, {UserID: 6, CommunityID: 1},
		{UserID: 3, CommunityID: 2}, {UserID: 4, CommunityID: 2},
	}
	return g
}

func TestCommunityReport(t *testing.T) {
	report, err := newReports(communityGraph()).CommunityReport(context.Background())
	require.NoError(t, err)

	louvain := report.Louvain
	assert.Equal(t, graph.AlgorithmLouvain, louvain.Algorithm)
	assert.Equal(t, int64(3), louvain.Metrics.CommunityCount)
	require.NotNil(t, louvain.Metrics.Modularity)
	assert.Equal(t, int64(15), louvain.Metrics.ComputeTimeMs)
	assert.Equal(t, []CommunityEdge{
		{Source: 10, Target: 30, Count: 2, SourceSize: 2, TargetSize: 2},
		{Source: 10, Target: 20, Count: 1, SourceSize: 2, TargetSize: 2},
	}, louvain.Edges)

	labelProp := report.LabelProp
	assert.Nil(t, labelProp.Metrics.Modularity)
	assert.Equal(t, []CommunityEdge{
		{Source: 1, Target: 2, Count: 1, SourceSize: 4, TargetSize: 2},
	}, labelProp.Edges)
}

func TestCommunityReport_FailsWhenEitherStrategyFails(t *testing.T) {
	g := communityGraph()
	g.failures["labelPropagation membership"] = errBoom

	_, err := newReports(g).CommunityReport(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCollaboratorFailure(err))
	assert.Equal(t, "labelPropagation membership", apperrors.Stage(err))
}

func TestCrossingEdges_Limit(t *testing.T) {
	members := []graph.Membership{
		{UserID: 1, CommunityID: 1}, {UserID: 2, CommunityID: 2}, {UserID: 3, CommunityID: 3},
	}
	edges := []graph.Edge{{Source: 1, Target: 2}, {Source: 2, Target: 1}, {Source: 1, Target: 3}, {Source: 9, Target: 1}}

	out := crossingEdges(members, edges, 1)
	require.Len(t, out, 1)
	assert.Equal(t, CommunityEdge{Source: 1, Target: 2, Count: 2, SourceSize: 1, TargetSize: 1}, out[0])
}

func centralityGraph() *fakeGraph {
	g := newFakeGraph(1, 2, 3)
	for _, m := range []graph.CentralityMeasure{graph.MeasureDegree, graph.MeasureBetweenness, graph.MeasureCloseness} {
		g.centrality[m] = &graph.CentralityStats{
			Measure:      m,
			Distribution: graph.Distribution{Min: 0, Max: 3, Mean: 1.5, P50: 1, P75: 2, P90: 3, P99: 3},
			ComputeTime:  time.Millisecond,
		}
		g.top[m] = []graph.ScoredNode{{UserID: 2, Score: 3}, {UserID: 1, Score: 1}}
	}
	g.estimates[graph.EstimateDegree] = &graph.MemoryEstimate{BytesMin: 10, BytesMax: 20, RequiredMemory: "20 Bytes"}
	return g
}

func TestCentralityReport(t *testing.T) {
	report, err := newReports(centralityGraph()).CentralityReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, graph.MeasureDegree, report.Degree.Measure)
	assert.Equal(t, 3.0, report.Degree.Distribution.Max)
	require.Len(t, report.Degree.TopNodes, 2)
	assert.Equal(t, int64(2), report.Degree.TopNodes[0].ID)
	assert.Equal(t, 3.0, report.Degree.TopNodes[0].Score)
	assert.Len(t, report.Degree.TopNodes[0].TopArtists, 1)
	require.NotNil(t, report.Degree.MemoryEstimate)
	assert.Equal(t, int64(20), report.Degree.MemoryEstimate.BytesMax)

	assert.Nil(t, report.Betweenness.MemoryEstimate, "missing estimate is null, not a failure")
	assert.Nil(t, report.Closeness.MemoryEstimate)
	assert.Equal(t, graph.MeasureCloseness, report.Closeness.Measure)
}

func TestCentralityReport_MeasureFailureIsFatal(t *testing.T) {
	g := centralityGraph()
	g.failures["closeness"] = errBoom

	_, err := newReports(g).CentralityReport(context.Background())
	require.Error(t, err)
	assert.Equal(t, "closeness centrality", apperrors.Stage(err))
}

func TestCentralityReport_VanishedNodeIsCollaboratorFailure(t *testing.T) {
	g := centralityGraph()
	g.top[graph.MeasureDegree] = []graph.ScoredNode{{UserID: 99, Score: 1}}

	_, err := newReports(g).CentralityReport(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCollaboratorFailure(err))
	assert.Equal(t, "degree enrichment", apperrors.Stage(err))
}

func TestRankingReport(t *testing.T) {
	g := newFakeGraph(1, 2, 3)
	g.pageRank = []graph.ScoredNode{{UserID: 3, Score: 2.5}, {UserID: 1, Score: 1.1}}
	g.queryMetrics = graph.QueryMetrics{ExecutionTime: 120 * time.Millisecond}

	report, err := newReports(g).RankingReport(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Users, 2)
	assert.Equal(t, int64(3), report.Users[0].ID)
	assert.Equal(t, 2.5, report.Users[0].Score)
	assert.Equal(t, int64(120), report.Metrics.ExecutionTimeMs)
	assert.Nil(t, report.Metrics.MemoryEstimate)

	g.estimates[graph.EstimatePageRank] = &graph.MemoryEstimate{BytesMax: 1024}
	report, err = newReports(g).RankingReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Metrics.MemoryEstimate)
	assert.Equal(t, int64(1024), report.Metrics.MemoryEstimate.BytesMax)
}

func TestRankingReport_RankingFailureIsFatal(t *testing.T) {
	g := newFakeGraph(1)
	g.failures["pagerank"] = errBoom
	g.estimates[graph.EstimatePageRank] = &graph.MemoryEstimate{BytesMax: 1}

	_, err := newReports(g).RankingReport(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCollaboratorFailure(err))
	assert.Equal(t, "pagerank", apperrors.Stage(err))
}

func TestRankingReport_Limit(t *testing.T) {
	g := newFakeGraph(1, 2, 3)
	g.pageRank = []graph.ScoredNode{{UserID: 1, Score: 3}, {UserID: 2, Score: 2}, {UserID: 3, Score: 1}}

	report, err := NewReportService(g, g, g.enricher(), ReportLimits{Ranking: 2}).RankingReport(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Users, 2)
}

func TestTriangleReport(t *testing.T) {
	g := newFakeGraph()
	g.triangles = []graph.Triangle{
		{UserIDs: [3]int64{1, 2, 3}, Countries: [3]string{"JP", "JP", "JP"}},
		{UserIDs: [3]int64{1, 2, 4}, Countries: [3]string{"JP", "KR", "JP"}},
		{UserIDs: [3]int64{2, 3, 4}, Countries: [3]string{"KR", "JP", "JP"}},
		{UserIDs: [3]int64{4, 5, 6}, Countries: [3]string{"TW", "KR", "JP"}},
	}
	g.queryMetrics = graph.QueryMetrics{ExecutionTime: 40 * time.Millisecond}
	g.estimates[graph.EstimateTriangles] = &graph.MemoryEstimate{BytesMax: 64}

	report, err := newReports(g).TriangleReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalTriangles)
	assert.Equal(t, []TriangleGroup{
		{CountriesInvolved: [3]string{"JP", "JP", "KR"}, TriangleCount: 2, CountryGroup: GroupTwoCountries},
		{CountriesInvolved: [3]string{"JP", "JP", "JP"}, TriangleCount: 1, CountryGroup: GroupSingleCountry},
		{CountriesInvolved: [3]string{"JP", "KR", "TW"}, TriangleCount: 1, CountryGroup: GroupThreeCountries},
	}, report.Grouped.Data)
	assert.Equal(t, int64(40), report.Grouped.Metrics.ExecutionTimeMs)
	require.NotNil(t, report.Grouped.Metrics.MemoryEstimate)

	total := 0
	for _, p := range report.Pairwise.Data {
		total += p.Frequency
	}
	assert.Equal(t, 3*report.TotalTriangles, total)
	assert.Equal(t, CountryPair{CountryA: "JP", CountryB: "JP", Frequency: 5}, report.Pairwise.Data[0])
	assert.Equal(t, CountryPair{CountryA: "JP", CountryB: "KR", Frequency: 5}, report.Pairwise.Data[1])
}

func TestTriangleReport_Failure(t *testing.T) {
	g := newFakeGraph()
	g.failures["triangles"] = errBoom

	_, err := newReports(g).TriangleReport(context.Background())
	assert.Equal(t, "triangle enumeration", apperrors.Stage(err))
}

func TestCountryGroup(t *testing.T) {
	assert.Equal(t, GroupSingleCountry, countryGroup([3]string{"A", "A", "A"}))
	assert.Equal(t, GroupTwoCountries, countryGroup([3]string{"A", "A", "B"}))
	assert.Equal(t, GroupTwoCountries, countryGroup([3]string{"A", "B", "B"}))
	assert.Equal(t, GroupThreeCountries, countryGroup([3]string{"A", "B", "C"}))
}
