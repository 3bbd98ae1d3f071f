package gateway

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tinytelemetry/vwatch/internal/model"
)

// Project sources reported in ProjectResult.Source.
const (
	SourceConfigured = "configured"
	SourceMock       = "mock"
	SourceLive       = "live"
	SourceFallback   = "fallback"
)

var (
	frameworks = []string{"Next.js", "React", "Vue.js", "Nuxt.js", "Svelte"}
	regions    = []string{"iad1", "sfo1", "hnd1", "fra1", "sin1"}
)

// projectStrategy yields nil projects to pass to the next strategy.
type projectStrategy struct {
	source  string
	resolve func(ctx context.Context) ([]model.Project, error)
}

func (g *Gateway) strategies() []projectStrategy {
	return []projectStrategy{
		{SourceConfigured, func(context.Context) ([]model.Project, error) {
			return g.synthesize(g.configuredURLs(), false), nil
		}},
		{SourceMock, func(context.Context) ([]model.Project, error) {
			if !g.mock {
				return nil, nil
			}
			return g.synthesize(mockURLs, true), nil
		}},
		{SourceLive, g.fetchProjects},
	}
}

// GetProjects walks the strategy list and returns the first usable result.
// It never fails: a live failure falls back to configured-URL synthesis and
// is reported through Degraded.
func (g *Gateway) GetProjects(ctx context.Context) model.ProjectResult {
	for _, s := range g.strategies() {
		projects, err := s.resolve(ctx)
		if err != nil {
			g.log.WithError(err).WithField("source", s.source).Warn("project source failed, using fallback")
			recordSource(SourceFallback)
			return model.ProjectResult{
				Projects: g.lastResort(),
				Source:   SourceFallback,
				Degraded: err,
			}
		}
		if len(projects) > 0 || s.source == SourceLive {
			recordSource(s.source)
			if projects == nil {
				projects = []model.Project{}
			}
			return model.ProjectResult{Projects: projects, Source: s.source}
		}
	}
	return model.ProjectResult{Projects: []model.Project{}, Source: SourceFallback, Degraded: errors.New("no project source available")}
}

// lastResort is network-free and cannot fail.
func (g *Gateway) lastResort() []model.Project {
	projects := g.synthesize(g.configuredURLs(), false)
	if projects == nil {
		return []model.Project{}
	}
	return projects
}

func (g *Gateway) fetchProjects(ctx context.Context) ([]model.Project, error) {
	var list remoteProjectList
	if err := g.do(ctx, "GET", "/projects", nil, &list); err != nil {
		return nil, err
	}
	var out []model.Project
	g.withRand(func(r *rand.Rand) { out = adaptProjects(list, r, g.now()) })
	return out, nil
}

// synthesize builds one placeholder Project per URL. With cycleStatus the
// status rotates through the four states by index, otherwise it is READY.
func (g *Gateway) synthesize(urls []string, cycleStatus bool) []model.Project {
	if len(urls) == 0 {
		return nil
	}
	now := g.now()
	out := make([]model.Project, 0, len(urls))
	g.withRand(func(r *rand.Rand) {
		for i, u := range urls {
			status := model.StatusReady
			if cycleStatus {
				status = model.Statuses[i%len(model.Statuses)]
			}
			out = append(out, model.Project{
				ID:          projectID(i),
				Name:        NameFromURL(u),
				URL:         u,
				Framework:   frameworks[i%len(frameworks)],
				Status:      status,
				LastUpdated: now.Add(-randDuration(r, 7*24*time.Hour)),
				HealthScore: healthScore(r),
				Region:      regions[i%len(regions)],
				CreatedAt:   now.Add(-randDuration(r, 30*24*time.Hour)),
			})
		}
	})
	return out
}

// NameFromURL derives a display name from the first host label:
// "https://my-blog.vercel.app" -> "My-blog".
func NameFromURL(u string) string {
	s := u
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return u
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:]
}

func projectID(i int) string {
	return "project-" + strconv.Itoa(i+1)
}

// healthScore returns a placeholder score in [60,100).
func healthScore(r *rand.Rand) int {
	return 60 + r.IntN(40)
}

func randDuration(r *rand.Rand, max time.Duration) time.Duration {
	return time.Duration(r.Int64N(int64(max)))
}

var mockURLs = []string{
	"https://marketing-site.vercel.app",
	"https://docs-portal.vercel.app",
	"https://admin-dashboard.vercel.app",
	"https://api-playground.vercel.app",
	"https://blog-engine.vercel.app",
	"https://shop-frontend.vercel.app",
}
