package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"lastfm-graph/backend/internal/enrichment"
	"lastfm-graph/backend/internal/graph"
	apperrors "lastfm-graph/backend/pkg/errors"
)

var errBoom = errors.New("engine unavailable")

// fakeGraph is an in-memory adjacency graph implementing every collaborator
// interface. Algorithm outputs other than paths are scripted.
type fakeGraph struct {
	mu    sync.Mutex
	users map[int64]graph.User
	out   map[int64][]int64
	edges map[graph.Edge]bool
	// projected is the adjacency ShortestPath sees; MergeFollows leaves it
	// stale until RefreshProjection runs.
	projected map[int64][]int64
	refreshes int

	communityStats map[graph.CommunityAlgorithm]*graph.CommunityStats
	membership     map[graph.CommunityAlgorithm][]graph.Membership
	centrality     map[graph.CentralityMeasure]*graph.CentralityStats
	top            map[graph.CentralityMeasure][]graph.ScoredNode
	pageRank       []graph.ScoredNode
	triangles      []graph.Triangle
	estimates      map[graph.EstimateProcedure]*graph.MemoryEstimate
	queries        map[string]graph.Result
	failures       map[string]error
	queryMetrics   graph.QueryMetrics
}

func newFakeGraph(ids ...int64) *fakeGraph {
	g := &fakeGraph{
		users:          map[int64]graph.User{},
		out:            map[int64][]int64{},
		projected:      map[int64][]int64{},
		edges:          map[graph.Edge]bool{},
		communityStats: map[graph.CommunityAlgorithm]*graph.CommunityStats{},
		membership:     map[graph.CommunityAlgorithm][]graph.Membership{},
		centrality:     map[graph.CentralityMeasure]*graph.CentralityStats{},
		top:            map[graph.CentralityMeasure][]graph.ScoredNode{},
		estimates:      map[graph.EstimateProcedure]*graph.MemoryEstimate{},
		queries:        map[string]graph.Result{},
		failures:       map[string]error{},
	}
	for _, id := range ids {
		code := "JP"
		g.users[id] = graph.User{ID: id, CountryCode: &code, TopArtists: []string{fmt.Sprintf("a%d", id)}}
	}
	return g
}

func (g *fakeGraph) addEdges(edges ...graph.Edge) *fakeGraph {
	for _, e := range edges {
		if !g.edges[e] {
			g.edges[e] = true
			g.out[e.Source] = append(g.out[e.Source], e.Target)
			g.projected[e.Source] = append(g.projected[e.Source], e.Target)
		}
	}
	return g
}

func (g *fakeGraph) fail(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[op]
}

func (g *fakeGraph) enricher() *enrichment.Cache {
	return enrichment.New(g, enrichment.IdentityResolver{})
}

func (g *fakeGraph) FetchUser(_ context.Context, userID int64) (*graph.User, error) {
	if err := g.fail("fetch"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[userID]
	if !ok {
		return nil, apperrors.NewNodeNotFound(userID)
	}
	clone := u.Clone()
	return &clone, nil
}

func (g *fakeGraph) Following(_ context.Context, userID int64) ([]int64, error) {
	if err := g.fail("following"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.out[userID]...), nil
}

func (g *fakeGraph) Followers(_ context.Context, userID int64) ([]int64, error) {
	if err := g.fail("followers"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []int64
	for e := range g.edges {
		if e.Target == userID {
			ids = append(ids, e.Source)
		}
	}
	return ids, nil
}

func (g *fakeGraph) neighbors(userID int64) map[int64]bool {
	set := map[int64]bool{}
	for e := range g.edges {
		if e.Source == userID {
			set[e.Target] = true
		}
		if e.Target == userID {
			set[e.Source] = true
		}
	}
	return set
}

func (g *fakeGraph) ConnectedUsers(_ context.Context, userID int64) ([]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ids []int64
	for id := range g.neighbors(userID) {
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *fakeGraph) CountUsers(context.Context) (int64, error) {
	if err := g.fail("count"); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return int64(len(g.users)), nil
}

// CommonNeighbors returns the raw intersection; it does not exclude the
// inputs so the service's own filtering is exercised.
func (g *fakeGraph) CommonNeighbors(_ context.Context, user1ID, user2ID int64) ([]int64, error) {
	if err := g.fail("common"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n1, n2 := g.neighbors(user1ID), g.neighbors(user2ID)
	var ids []int64
	for id := range n1 {
		if n2[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (g *fakeGraph) MergeFollows(_ context.Context, edges []graph.Edge) (int, error) {
	if err := g.fail("merge"); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	created := 0
	for _, e := range edges {
		_, okS := g.users[e.Source]
		_, okT := g.users[e.Target]
		if !okS || !okT || g.edges[e] {
			continue
		}
		g.edges[e] = true
		g.out[e.Source] = append(g.out[e.Source], e.Target)
		created++
	}
	return created, nil
}

func (g *fakeGraph) FollowEdges(context.Context) ([]graph.Edge, error) {
	if err := g.fail("edges"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]graph.Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	return out, nil
}

// ShortestPath runs a directed BFS in adjacency insertion order.
func (g *fakeGraph) ShortestPath(_ context.Context, sourceID, targetID int64) (*graph.Path, error) {
	if err := g.fail("shortest"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := map[int64]int64{sourceID: sourceID}
	queue := []int64{sourceID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == targetID {
			var path []int64
			for n := targetID; n != sourceID; n = prev[n] {
				path = append([]int64{n}, path...)
			}
			path = append([]int64{sourceID}, path...)
			return &graph.Path{NodeIDs: path, Cost: float64(len(path) - 1)}, nil
		}
		for _, next := range g.projected[cur] {
			if _, seen := prev[next]; !seen {
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil, nil
}

func (g *fakeGraph) RefreshProjection(context.Context) (bool, error) {
	if err := g.fail("refresh"); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.projected = make(map[int64][]int64, len(g.out))
	for id, next := range g.out {
		g.projected[id] = append([]int64(nil), next...)
	}
	g.refreshes++
	return true, nil
}

// AllShortestPaths returns every simple directed path, longest included,
// so the caller's minimum-length filter is exercised.
func (g *fakeGraph) AllShortestPaths(_ context.Context, sourceID, targetID int64) ([]graph.Path, error) {
	if err := g.fail("all"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var paths []graph.Path
	var walk func(cur int64, trail []int64, seen map[int64]bool)
	walk = func(cur int64, trail []int64, seen map[int64]bool) {
		if cur == targetID {
			nodes := append([]int64(nil), trail...)
			paths = append(paths, graph.Path{NodeIDs: nodes, Cost: float64(len(nodes) - 1)})
			return
		}
		for _, next := range g.out[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			walk(next, append(trail, next), seen)
			delete(seen, next)
		}
	}
	walk(sourceID, []int64{sourceID}, map[int64]bool{sourceID: true})
	return paths, nil
}

func (g *fakeGraph) CommunityStats(_ context.Context, algo graph.CommunityAlgorithm) (*graph.CommunityStats, error) {
	if err := g.fail(string(algo) + " stats"); err != nil {
		return nil, err
	}
	return g.communityStats[algo], nil
}

func (g *fakeGraph) CommunityMembership(_ context.Context, algo graph.CommunityAlgorithm) ([]graph.Membership, error) {
	if err := g.fail(string(algo) + " membership"); err != nil {
		return nil, err
	}
	return g.membership[algo], nil
}

func (g *fakeGraph) CentralityStats(_ context.Context, measure graph.CentralityMeasure) (*graph.CentralityStats, error) {
	if err := g.fail(string(measure)); err != nil {
		return nil, err
	}
	return g.centrality[measure], nil
}

func (g *fakeGraph) TopCentrality(_ context.Context, measure graph.CentralityMeasure, limit int) ([]graph.ScoredNode, error) {
	nodes := g.top[measure]
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes, nil
}

func (g *fakeGraph) PageRank(_ context.Context, limit int) ([]graph.ScoredNode, graph.QueryMetrics, error) {
	if err := g.fail("pagerank"); err != nil {
		return nil, graph.QueryMetrics{}, err
	}
	nodes := g.pageRank
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes, g.queryMetrics, nil
}

func (g *fakeGraph) Triangles(context.Context) ([]graph.Triangle, graph.QueryMetrics, error) {
	if err := g.fail("triangles"); err != nil {
		return nil, graph.QueryMetrics{}, err
	}
	return g.triangles, g.queryMetrics, nil
}

func (g *fakeGraph) Estimate(_ context.Context, procedure graph.EstimateProcedure) (*graph.MemoryEstimate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	est, ok := g.estimates[procedure]
	if !ok {
		return nil, fmt.Errorf("no estimate for %s", procedure)
	}
	return est, nil
}

func (g *fakeGraph) RunQuery(_ context.Context, cypher string, _ map[string]any) (graph.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for fragment, res := range g.queries {
		if strings.Contains(cypher, fragment) {
			if err := g.failures[fragment]; err != nil {
				return graph.Result{}, err
			}
			return res, nil
		}
	}
	return graph.Result{}, nil
}

// scenarioGraph is nodes 1..5 with edges 1->2, 2->3, 1->3.
func scenarioGraph() *fakeGraph {
	return newFakeGraph(1, 2, 3, 4, 5).addEdges(
		graph.Edge{Source: 1, Target: 2},
		graph.Edge{Source: 2, Target: 3},
		graph.Edge{Source: 1, Target: 3},
	)
}
