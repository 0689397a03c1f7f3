package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lastfm-graph/backend/pkg/config"
	"lastfm-graph/backend/pkg/logger"
)

var (
	// ErrLookupDisabled is returned by resolvers that never call out.
	ErrLookupDisabled = errors.New("name lookup disabled")
	// ErrNameMissing is returned when the service answered without a name.
	ErrNameMissing = errors.New("name missing from response")
)

// NameResolver maps an external item id to its display name.
type NameResolver interface {
	Resolve(ctx context.Context, itemID string) (string, error)
	Name() string
}

// PlaceholderName is the display name used when an item cannot be resolved.
func PlaceholderName(itemID string) string {
	return fmt.Sprintf("Unknown Artist (%s)", itemID)
}

// NewResolver builds the resolver selected by configuration.
func NewResolver(cfg *config.Config) NameResolver {
	switch cfg.NameResolver {
	case config.ResolverLastFM:
		return NewLastFMResolver(cfg.LastFMAPIURL, cfg.LastFMAPIKey,
			WithTimeout(cfg.NameLookupTimeout),
			WithRateLimit(cfg.NameLookupRPS, cfg.NameLookupBurst))
	case config.ResolverPage:
		return NewPageResolver(cfg.LastFMWebURL,
			WithTimeout(cfg.NameLookupTimeout),
			WithRateLimit(cfg.NameLookupRPS, cfg.NameLookupBurst))
	}
	return IdentityResolver{}
}

type httpResolver struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ResolverOption customises an HTTP backed resolver.
type ResolverOption func(*httpResolver)

// WithTimeout bounds each HTTP round-trip.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *httpResolver) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound calls. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) ResolverOption {
	return func(r *httpResolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient swaps the underlying client.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *httpResolver) {
		r.httpClient = c
	}
}

func newHTTPResolver(component string, opts []ResolverOption) httpResolver {
	r := httpResolver{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.Named(component),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// get waits for the limiter, performs the request and returns the body of a
// 2xx response.
func (r *httpResolver) get(ctx context.Context, endpoint string) ([]byte, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}
	return body, nil
}

// LastFMResolver resolves artist names through the artist.getInfo method.
type LastFMResolver struct {
	httpResolver
	apiURL string
	apiKey string
}

// NewLastFMResolver creates a resolver for the Last.fm web service.
func NewLastFMResolver(apiURL, apiKey string, opts ...ResolverOption) *LastFMResolver {
	return &LastFMResolver{
		httpResolver: newHTTPResolver("lastfm", opts),
		apiURL:       apiURL,
		apiKey:       apiKey,
	}
}

func (r *LastFMResolver) Name() string { return "lastfm" }

type artistInfoResponse struct {
	Artist *struct {
		Name string `json:"name"`
	} `json:"artist"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func (r *LastFMResolver) Resolve(ctx context.Context, itemID string) (string, error) {
	if r.apiKey == "" {
		return "", ErrLookupDisabled
	}

	q := url.Values{}
	q.Set("method", "artist.getInfo")
	q.Set("artist", itemID)
	q.Set("api_key", r.apiKey)
	q.Set("format", "json")

	body, err := r.get(ctx, r.apiURL+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var info artistInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("failed to decode artist info: %w", err)
	}
	if info.Error != 0 {
		return "", fmt.Errorf("last.fm error %d: %s", info.Error, info.Message)
	}
	if info.Artist == nil || strings.TrimSpace(info.Artist.Name) == "" {
		return "", ErrNameMissing
	}

	r.logger.Debug("Artist resolved", zap.String("item_id", itemID), zap.String("name", info.Artist.Name))
	return info.Artist.Name, nil
}

// PageResolver reads the artist name from the public artist page.
type PageResolver struct {
	httpResolver
	baseURL string
}

// NewPageResolver creates a resolver scraping pages under baseURL.
func NewPageResolver(baseURL string, opts ...ResolverOption) *PageResolver {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &PageResolver{
		httpResolver: newHTTPResolver("artist-page", opts),
		baseURL:      baseURL,
	}
}

func (r *PageResolver) Name() string { return "page" }

func (r *PageResolver) Resolve(ctx context.Context, itemID string) (string, error) {
	body, err := r.get(ctx, r.baseURL+url.PathEscape(itemID))
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse artist page: %w", err)
	}

	name := strings.TrimSpace(doc.Find("h1.header-new-title").First().Text())
	if name == "" {
		if content, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			name = strings.TrimSpace(content)
		}
	}
	if name == "" {
		return "", ErrNameMissing
	}
	return name, nil
}

// IdentityResolver never calls out; every item keeps its placeholder name.
type IdentityResolver struct{}

func (IdentityResolver) Name() string { return "identity" }

func (IdentityResolver) Resolve(context.Context, string) (string, error) {
	return "", ErrLookupDisabled
}
