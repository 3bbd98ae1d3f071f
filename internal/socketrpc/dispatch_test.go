package socketrpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/vwatch/internal/duckdb"
	"github.com/tinytelemetry/vwatch/internal/gateway"
	"github.com/tinytelemetry/vwatch/internal/localstore"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

type stubRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRefresher) RefreshAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

// stubAuth accepts the token "good".
type stubAuth struct {
	mu    sync.Mutex
	token string
}

func (a *stubAuth) SetVercelToken(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, gateway.ErrEmptyToken
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	return token == "good", nil
}

func (a *stubAuth) ValidateToken(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token == "good"
}

func (a *stubAuth) HasToken() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != ""
}

func (a *stubAuth) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	return nil
}

type stubHistory struct{}

func (stubHistory) RealtimeSeries(projectID string, since time.Time) ([]duckdb.SeriesPoint, error) {
	return []duckdb.SeriesPoint{{Minute: since.Truncate(time.Minute), ActiveUsers: 3, PageViews: 9}}, nil
}

func newTestDispatcher() *Server {
	st := store.New()
	st.SetProjects([]model.Project{{ID: "p1", Name: "one", Status: model.StatusReady, HealthScore: 90}})
	return &Server{deps: Deps{
		State:     st,
		Refresher: &stubRefresher{},
		Auth:      &stubAuth{},
		Projects:  localstore.NewMemory(),
		History:   stubHistory{},
	}}
}

func call(t *testing.T, srv *Server, method, params string) Response {
	t.Helper()
	return srv.dispatch(Request{JSONRPC: "2.0", ID: 1, Method: method, Params: json.RawMessage(params)})
}

func TestDispatch_AllMethods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		params string
	}{
		{"Snapshot", ``},
		{"Summary", `null`},
		{"SetSelectedProjects", `{"Projects":["p1"]}`},
		{"SetFilters", `{"timeRange":"30days"}`},
		{"SetSettings", `{"refreshInterval":60}`},
		{"Refresh", ``},
		{"SetToken", `{"Token":"good"}`},
		{"ValidateToken", ``},
		{"HasToken", ``},
		{"Logout", ``},
		{"ProjectConfigs", ``},
		{"SaveProjectConfigs", `{"Configs":[{"url":"https://a.vercel.app"}]}`},
		{"RealtimeSeries", `{"Project":"p1","Minutes":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			srv := newTestDispatcher()
			resp := call(t, srv, tt.method, tt.params)
			if resp.Error != nil {
				t.Fatalf("dispatch(%s) error: %s", tt.method, resp.Error.Message)
			}
			if resp.Result == nil {
				t.Fatalf("dispatch(%s) returned nil result", tt.method)
			}
			if resp.JSONRPC != "2.0" {
				t.Errorf("JSONRPC = %q, want 2.0", resp.JSONRPC)
			}
			if resp.ID != 1 {
				t.Errorf("ID = %d, want 1", resp.ID)
			}
		})
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	t.Parallel()
	resp := call(t, newTestDispatcher(), "NonExistentMethod", `{}`)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, method, params string
	}{
		{"garbage", "SetFilters", `not json`},
		{"missing patch", "SetSettings", ``},
		{"unknown range", "SetFilters", `{"timeRange":"fortnight"}`},
		{"blank token", "SetToken", `{"Token":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := call(t, newTestDispatcher(), tt.method, tt.params)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != CodeInvalidParams {
				t.Errorf("error code = %d, want %d", resp.Error.Code, CodeInvalidParams)
			}
		})
	}
}

func TestDispatch_SetFiltersMerges(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher()

	resp := call(t, srv, "SetFilters", `{"timeRange":"today"}`)
	if resp.Error != nil {
		t.Fatal(resp.Error.Message)
	}
	var f model.FilterOptions
	if err := json.Unmarshal(resp.Result, &f); err != nil {
		t.Fatal(err)
	}
	if f.TimeRange != model.RangeToday {
		t.Errorf("TimeRange = %q, want today", f.TimeRange)
	}
	if len(f.Metrics) == 0 {
		t.Error("metrics should be retained by a partial patch")
	}
}

func TestDispatch_RefreshFailure(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher()
	srv.deps.Refresher = &stubRefresher{err: errors.New("failed to load projects")}

	resp := call(t, srv, "Refresh", ``)
	if resp.Error == nil || resp.Error.Code != CodeApplication {
		t.Fatalf("want application error, got %+v", resp.Error)
	}
	if resp.Error.Message != "failed to load projects" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestDispatch_MissingCollaborators(t *testing.T) {
	t.Parallel()
	srv := &Server{deps: Deps{State: store.New()}}

	for _, method := range []string{"Refresh", "SetToken", "ValidateToken", "ProjectConfigs", "RealtimeSeries"} {
		resp := call(t, srv, method, `{"Token":"x"}`)
		if resp.Error == nil || resp.Error.Code != CodeApplication {
			t.Errorf("%s: want application error, got %+v", method, resp.Error)
		}
	}

	resp := call(t, srv, "HasToken", ``)
	if resp.Error != nil || string(resp.Result) != "false" {
		t.Errorf("HasToken without auth = %s, %+v", resp.Result, resp.Error)
	}
}

func TestDispatch_TokenLifecycle(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher()

	if resp := call(t, srv, "SetToken", `{"Token":"bad"}`); resp.Error != nil || string(resp.Result) != "false" {
		t.Fatalf("SetToken(bad) = %s, %+v", resp.Result, resp.Error)
	}
	if resp := call(t, srv, "HasToken", ``); string(resp.Result) != "true" {
		t.Errorf("HasToken after bad token = %s, want true", resp.Result)
	}
	if resp := call(t, srv, "SetToken", `{"Token":"good"}`); string(resp.Result) != "true" {
		t.Errorf("SetToken(good) = %s", resp.Result)
	}
	call(t, srv, "Logout", ``)
	if resp := call(t, srv, "HasToken", ``); string(resp.Result) != "false" {
		t.Errorf("HasToken after logout = %s, want false", resp.Result)
	}
}
