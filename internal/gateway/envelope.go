package gateway

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tinytelemetry/vwatch/internal/model"
)

// getEnveloped decodes a {success, data, message, error} response and
// returns data, or an EnvelopeError when success is false.
func getEnveloped[T any](ctx context.Context, g *Gateway, method, path string, body any) (T, error) {
	var env model.Envelope[T]
	if err := g.do(ctx, method, path, body, &env); err != nil {
		var zero T
		return zero, err
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		var zero T
		return zero, EnvelopeError{Message: msg}
	}
	return env.Data, nil
}

// remoteProjectList is the un-enveloped body of GET /projects.
type remoteProjectList struct {
	Projects []remoteProject `json:"projects"`
}

type remoteProject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Framework string `json:"framework"`
	Targets   struct {
		Production *struct {
			URL string `json:"url"`
		} `json:"production"`
	} `json:"targets"`
	LatestDeployments []struct {
		ReadyState string `json:"readyState"`
	} `json:"latestDeployments"`
	State     string `json:"state"`
	Region    string `json:"region"`
	CreatedAt int64  `json:"createdAt"` // unix ms
	UpdatedAt int64  `json:"updatedAt"` // unix ms
}

// adaptProjects maps the live listing into Projects. It is the only place
// the un-enveloped listing shape is known.
func adaptProjects(list remoteProjectList, rng *rand.Rand, now time.Time) []model.Project {
	out := make([]model.Project, 0, len(list.Projects))
	for _, rp := range list.Projects {
		p := model.Project{
			ID:          rp.ID,
			Name:        rp.Name,
			Framework:   rp.Framework,
			Region:      rp.Region,
			Status:      mapState(rp.remoteState()),
			HealthScore: healthScore(rng),
			LastUpdated: fromMillis(rp.UpdatedAt, now),
			CreatedAt:   fromMillis(rp.CreatedAt, now),
		}
		if rp.Targets.Production != nil {
			p.URL = productionURL(rp.Targets.Production.URL)
		}
		out = append(out, p)
	}
	return out
}

func (rp remoteProject) remoteState() string {
	if len(rp.LatestDeployments) > 0 && rp.LatestDeployments[0].ReadyState != "" {
		return rp.LatestDeployments[0].ReadyState
	}
	return rp.State
}

// mapState keeps the four known states; anything else becomes BUILDING.
func mapState(s string) model.ProjectStatus {
	st := model.ProjectStatus(strings.ToUpper(strings.TrimSpace(s)))
	if st.Valid() {
		return st
	}
	return model.StatusBuilding
}

func productionURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

func fromMillis(ms int64, fallback time.Time) time.Time {
	if ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}
