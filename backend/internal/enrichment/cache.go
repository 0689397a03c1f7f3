package enrichment

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"lastfm-graph/backend/internal/graph"
	"lastfm-graph/backend/pkg/config"
	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// StageProfileLookup names the profile fetch in collaborator failures.
const StageProfileLookup = "profile lookup"

// ProfileSource loads user profiles from the graph store.
type ProfileSource interface {
	FetchUser(ctx context.Context, userID int64) (*graph.User, error)
}

// ItemName pairs an external item id with its display name.
type ItemName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnrichedProfile is a user with resolved top item names. It is built on
// demand and never persisted.
type EnrichedProfile struct {
	ID          int64      `json:"id"`
	CountryCode *string    `json:"country_code"`
	CountryName *string    `json:"country_name"`
	TopArtists  []ItemName `json:"top_artists"`
}

// Stats reports how many entries each cache holds.
type Stats struct {
	Profiles int    `json:"profiles"`
	Names    int    `json:"names"`
	Resolver string `json:"resolver"`
}

// Cache memoizes user profiles and item names for the process lifetime (or
// until evicted by the configured store). Concurrent cold requests for one
// key share a single collaborator call.
type Cache struct {
	source        ProfileSource
	resolver      NameResolver
	profiles      Store[int64, graph.User]
	names         Store[string, string]
	profileFlight singleflight.Group
	nameFlight    singleflight.Group
	fetchTimeout  time.Duration
	lookupTimeout time.Duration
	concurrency   int
	logger        *zap.Logger
}

// Option customises a Cache.
type Option func(*Cache)

// WithProfileStore replaces the profile store.
func WithProfileStore(s Store[int64, graph.User]) Option {
	return func(c *Cache) { c.profiles = s }
}

// WithNameStore replaces the item name store.
func WithNameStore(s Store[string, string]) Option {
	return func(c *Cache) { c.names = s }
}

// WithFetchTimeout bounds each profile fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithLookupTimeout bounds each name lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

// WithConcurrency bounds parallel name lookups per call.
func WithConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger overrides the cache logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache with unbounded stores unless overridden.
func New(source ProfileSource, resolver NameResolver, opts ...Option) *Cache {
	if resolver == nil {
		resolver = IdentityResolver{}
	}
	c := &Cache{
		source:        source,
		resolver:      resolver,
		profiles:      NewUnboundedStore[int64, graph.User](),
		names:         NewUnboundedStore[string, string](),
		fetchTimeout:  10 * time.Second,
		lookupTimeout: 5 * time.Second,
		concurrency:   4,
		logger:        logger.Named("enrichment"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig wires stores, resolver and limits from configuration.
func NewFromConfig(cfg *config.Config, source ProfileSource) *Cache {
	opts := []Option{
		WithFetchTimeout(cfg.ProfileFetchTimeout),
		WithLookupTimeout(cfg.NameLookupTimeout),
		WithConcurrency(cfg.NameLookupConcurrency),
	}
	if cfg.CachePolicy == config.CachePolicyLRU {
		opts = append(opts,
			WithProfileStore(NewLRUStore[int64, graph.User](cfg.CacheCapacity, cfg.CacheTTL)),
			WithNameStore(NewLRUStore[string, string](cfg.CacheCapacity, cfg.CacheTTL)),
		)
	}
	return New(source, NewResolver(cfg), opts...)
}

// ResolveUserProfile returns the cached profile of a user, loading it from
// the graph store on a miss. A nonexistent user yields ErrNodeNotFound and
// is not cached; a user with unset fields is cached as is.
//
// The shared fetch outlives any single caller: it runs detached from the
// caller's cancellation and is bounded by the fetch timeout instead. A
// caller that goes away stops waiting without failing the others.
func (c *Cache) ResolveUserProfile(ctx context.Context, userID int64) (*graph.User, error) {
	if u, ok := c.profiles.Get(userID); ok {
		cacheRequests.WithLabelValues("profile", "hit").Inc()
		c.logger.Debug("Profile cache hit", zap.Int64("user_id", userID))
		clone := u.Clone()
		return &clone, nil
	}
	cacheRequests.WithLabelValues("profile", "miss").Inc()

	ch := c.profileFlight.DoChan(strconv.FormatInt(userID, 10), func() (any, error) {
		if u, ok := c.profiles.Get(userID); ok {
			return u, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		u, err := c.source.FetchUser(fetchCtx, userID)
		if err != nil {
			return nil, err
		}
		return c.profiles.PutIfAbsent(userID, u.Clone()), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if apperrors.IsNotFound(res.Err) {
				return nil, res.Err
			}
			return nil, apperrors.NewGraphFailure(StageProfileLookup, res.Err)
		}
		clone := res.Val.(graph.User).Clone()
		return &clone, nil
	case <-ctx.Done():
		return nil, apperrors.NewGraphFailure(StageProfileLookup, ctx.Err())
	}
}

// ResolveItemNames maps every id to its display name, preserving input
// order and duplicates. Each distinct id is resolved at most once while
// resident; a failed lookup is stored as the placeholder name. Lookup
// failures are never returned to the caller.
func (c *Cache) ResolveItemNames(ctx context.Context, itemIDs []string) []ItemName {
	if len(itemIDs) == 0 {
		return []ItemName{}
	}

	distinct := make([]string, 0, len(itemIDs))
	seen := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	var mu sync.Mutex
	resolved := make(map[string]string, len(distinct))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, id := range distinct {
		g.Go(func() error {
			name := c.resolveName(ctx, id)
			mu.Lock()
			resolved[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]ItemName, len(itemIDs))
	for i, id := range itemIDs {
		out[i] = ItemName{ID: id, Name: resolved[id]}
	}
	return out
}

func (c *Cache) resolveName(ctx context.Context, itemID string) string {
	if name, ok := c.names.Get(itemID); ok {
		cacheRequests.WithLabelValues("name", "hit").Inc()
		return name
	}
	cacheRequests.WithLabelValues("name", "miss").Inc()
	if ctx.Err() != nil {
		return PlaceholderName(itemID)
	}

	ch := c.nameFlight.DoChan(itemID, func() (any, error) {
		if name, ok := c.names.Get(itemID); ok {
			return name, nil
		}

		// Shared by every waiter; only the lookup timeout ends it
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		start := time.Now()
		name, err := c.resolver.Resolve(lookupCtx, itemID)
		nameLookupDuration.WithLabelValues(c.resolver.Name()).Observe(time.Since(start).Seconds())

		switch {
		case err == nil:
			nameLookups.WithLabelValues(c.resolver.Name(), "resolved").Inc()
		case errors.Is(err, ErrLookupDisabled):
			nameLookups.WithLabelValues(c.resolver.Name(), "disabled").Inc()
			name = PlaceholderName(itemID)
		default:
			nameLookups.WithLabelValues(c.resolver.Name(), "failed").Inc()
			c.logger.Warn("Name lookup failed, using placeholder",
				zap.String("item_id", itemID),
				zap.String("resolver", c.resolver.Name()),
				zap.Error(err),
			)
			name = PlaceholderName(itemID)
		}
		return c.names.PutIfAbsent(itemID, name), nil
	})

	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return PlaceholderName(itemID)
	}
}

// EnrichUser returns the profile of a user with the names of its top items.
func (c *Cache) EnrichUser(ctx context.Context, userID int64) (*EnrichedProfile, error) {
	user, err := c.ResolveUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	artists := user.TopArtists
	if len(artists) > graph.MaxTopArtists {
		artists = artists[:graph.MaxTopArtists]
	}

	return &EnrichedProfile{
		ID:          user.ID,
		CountryCode: user.CountryCode,
		CountryName: user.CountryName,
		TopArtists:  c.ResolveItemNames(ctx, artists),
	}, nil
}

// EnrichUsers enriches every id in order. The first failure aborts the call.
func (c *Cache) EnrichUsers(ctx context.Context, userIDs []int64) ([]EnrichedProfile, error) {
	out := make([]EnrichedProfile, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range userIDs {
		g.Go(func() error {
			p, err := c.EnrichUser(gctx, id)
			if err != nil {
				return err
			}
			out[i] = *p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the current cache occupancy.
func (c *Cache) Stats() Stats {
	return Stats{
		Profiles: c.profiles.Len(),
		Names:    c.names.Len(),
		Resolver: c.resolver.Name(),
	}
}
