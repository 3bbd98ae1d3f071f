// Package gateway resolves projects and their datasets from configured URLs,
// generated mock data or the live API, and manages the bearer credential.
package gateway

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/model"
)

// Credentials is the durable storage the gateway reads the token and the
// user-managed project URLs from.
type Credentials interface {
	Token() string
	SetToken(token string) error
	ClearToken() error
	ProjectURLs() []string
}

// Config holds the values resolved once at process start.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	ProjectURLs []string
	MockData    bool
}

// Option customises gateway instantiation.
type Option func(*Gateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(g *Gateway) {
		if h != nil {
			g.httpClient = h
		}
	}
}

// WithRand replaces the source of placeholder health scores and timestamps.
func WithRand(r *rand.Rand) Option {
	return func(g *Gateway) {
		if r != nil {
			g.rng = r
		}
	}
}

// WithClock overrides the clock used for synthesized timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the logger used for fallback and eviction messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// OnUnauthorized registers a hook fired after a 401 evicts the credential.
func OnUnauthorized(fn func()) Option {
	return func(g *Gateway) { g.onUnauthorized = fn }
}

// Gateway implements model.Gateway.
type Gateway struct {
	baseURL     string
	httpClient  *http.Client
	creds       Credentials
	projectURLs []string
	mock        bool

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
	log   logrus.FieldLogger

	onUnauthorized func()
}

var _ model.Gateway = (*Gateway)(nil)

// New constructs a Gateway. An empty base URL uses the public Vercel API.
func New(cfg Config, creds Credentials, opts ...Option) (*Gateway, error) {
	if creds == nil {
		return nil, fmt.Errorf("gateway: credential store is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = model.DefaultAPIBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = model.DefaultAPITimeout
	}

	g := &Gateway{
		baseURL:     strings.TrimRight(base, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		creds:       creds,
		projectURLs: cleanURLs(cfg.ProjectURLs),
		mock:        cfg.MockData,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:         time.Now,
		log:         logrus.WithField("component", "gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	initMetrics()
	return g, nil
}

// MockMode reports whether datasets are generated locally.
func (g *Gateway) MockMode() bool { return g.mock }

// HasToken reports whether a credential is currently stored.
func (g *Gateway) HasToken() bool {
	return strings.TrimSpace(g.creds.Token()) != ""
}

// configuredURLs merges the static list with the locally saved project
// configs, static entries first, duplicates dropped.
func (g *Gateway) configuredURLs() []string {
	return cleanURLs(append(append([]string(nil), g.projectURLs...), g.creds.ProjectURLs()...))
}

func (g *Gateway) withRand(fn func(r *rand.Rand)) {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	fn(g.rng)
}

func (g *Gateway) evictCredential() {
	if err := g.creds.ClearToken(); err != nil {
		g.log.WithError(err).Warn("failed to clear credential after 401")
	} else {
		g.log.Warn("credential rejected with 401, cleared")
	}
	if g.onUnauthorized != nil {
		g.onUnauthorized()
	}
}

func cleanURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
