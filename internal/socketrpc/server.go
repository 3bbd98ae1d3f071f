package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/duckdb"
	"github.com/tinytelemetry/vwatch/internal/gateway"
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

const (
	scannerInitBufSize  = 1024 * 1024
	scannerMaxTokenSize = 10 * 1024 * 1024

	refreshTimeout = 25 * time.Second
)

// Refresher reloads every dataset.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Auth manages the bearer credential.
type Auth interface {
	SetVercelToken(ctx context.Context, token string) (bool, error)
	ValidateToken(ctx context.Context) bool
	HasToken() bool
	Logout() error
}

// ProjectConfigStore persists the user-managed project URL list.
type ProjectConfigStore interface {
	ProjectConfigs() ([]model.ProjectConfig, error)
	SaveProjectConfigs(cfgs []model.ProjectConfig) ([]model.ProjectConfig, error)
}

// HistoryReader serves realtime history.
type HistoryReader interface {
	RealtimeSeries(projectID string, since time.Time) ([]duckdb.SeriesPoint, error)
}

// Deps are the collaborators the RPC methods act on. Only State is required.
type Deps struct {
	State     *store.Store
	Refresher Refresher
	Auth      Auth
	Projects  ProjectConfigStore
	History   HistoryReader
}

// Server exposes the dashboard over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath string
	deps       Deps
	log        logrus.FieldLogger
	listener   net.Listener
	wg         sync.WaitGroup
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates a new socket RPC server.
func NewServer(socketPath string, deps Deps) *Server {
	return &Server{
		socketPath: socketPath,
		deps:       deps,
		log:        logrus.WithField("component", "socketrpc"),
		quit:       make(chan struct{}),
	}
}

// Start listens on the socket. A stale socket file left by a crashed
// process is removed; a live one is an error.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another server is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Infof("listening on %s", s.socketPath)
	return nil
}

// Stop closes the listener, waits for connections to drain and removes the
// socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.WithError(err).Warn("accept failed")
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			encoder.Encode(Response{JSONRPC: "2.0", Error: &RPCError{Code: CodeParseError, Message: "parse error"}})
			continue
		}
		if err := encoder.Encode(s.dispatch(req)); err != nil {
			return
		}
	}
}

// decodeParams accepts empty or null params for methods whose params are
// all optional.
func decodeParams(raw json.RawMessage, v any, optional bool) error {
	if len(raw) == 0 || string(raw) == "null" {
		if optional {
			return nil
		}
		return errors.New("params required")
	}
	return json.Unmarshal(raw, v)
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v any, err error) Response {
		if err != nil {
			resp.Error = &RPCError{Code: CodeApplication, Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: CodeInternal, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	invalidParams := func(err error) Response {
		resp.Error = &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
		return resp
	}

	unavailable := func(what string) Response {
		resp.Error = &RPCError{Code: CodeApplication, Message: what + " is not available"}
		return resp
	}

	st := s.deps.State

	switch req.Method {
	case "Snapshot":
		return marshalResult(st.Snapshot(), nil)

	case "Summary":
		return marshalResult(metrics.BuildReport(st.Snapshot()), nil)

	case "SetSelectedProjects":
		var p struct{ Projects []string }
		if err := decodeParams(req.Params, &p, true); err != nil {
			return invalidParams(err)
		}
		if p.Projects == nil {
			p.Projects = []string{}
		}
		st.SetSelectedProjects(p.Projects)
		return marshalResult(p.Projects, nil)

	case "SetFilters":
		var p store.FilterPatch
		if err := decodeParams(req.Params, &p, false); err != nil {
			return invalidParams(err)
		}
		if p.TimeRange != nil && !p.TimeRange.Valid() {
			return invalidParams(fmt.Errorf("unknown time range %q", *p.TimeRange))
		}
		st.SetFilters(p)
		return marshalResult(st.Snapshot().Filters, nil)

	case "SetSettings":
		var p store.SettingsPatch
		if err := decodeParams(req.Params, &p, false); err != nil {
			return invalidParams(err)
		}
		st.SetSettings(p)
		return marshalResult(st.Snapshot().Settings, nil)

	case "Refresh":
		if s.deps.Refresher == nil {
			return unavailable("refresh")
		}
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := s.deps.Refresher.RefreshAll(ctx); err != nil {
			return marshalResult(nil, err)
		}
		return marshalResult(st.Snapshot(), nil)

	case "SetToken":
		if s.deps.Auth == nil {
			return unavailable("authentication")
		}
		var p struct{ Token string }
		if err := decodeParams(req.Params, &p, false); err != nil {
			return invalidParams(err)
		}
		ok, err := s.deps.Auth.SetVercelToken(context.Background(), p.Token)
		if errors.Is(err, gateway.ErrEmptyToken) {
			return invalidParams(err)
		}
		return marshalResult(ok, err)

	case "ValidateToken":
		if s.deps.Auth == nil {
			return unavailable("authentication")
		}
		return marshalResult(s.deps.Auth.ValidateToken(context.Background()), nil)

	case "HasToken":
		if s.deps.Auth == nil {
			return marshalResult(false, nil)
		}
		return marshalResult(s.deps.Auth.HasToken(), nil)

	case "Logout":
		if s.deps.Auth == nil {
			return unavailable("authentication")
		}
		return marshalResult(true, s.deps.Auth.Logout())

	case "ProjectConfigs":
		if s.deps.Projects == nil {
			return unavailable("project configuration")
		}
		cfgs, err := s.deps.Projects.ProjectConfigs()
		if cfgs == nil {
			cfgs = []model.ProjectConfig{}
		}
		return marshalResult(cfgs, err)

	case "SaveProjectConfigs":
		if s.deps.Projects == nil {
			return unavailable("project configuration")
		}
		var p struct{ Configs []model.ProjectConfig }
		if err := decodeParams(req.Params, &p, true); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.deps.Projects.SaveProjectConfigs(p.Configs))

	case "RealtimeSeries":
		if s.deps.History == nil {
			return unavailable("history")
		}
		var p struct {
			Project string
			Minutes int
		}
		if err := decodeParams(req.Params, &p, true); err != nil {
			return invalidParams(err)
		}
		if p.Minutes <= 0 {
			p.Minutes = 60
		}
		points, err := s.deps.History.RealtimeSeries(p.Project, time.Now().Add(-time.Duration(p.Minutes)*time.Minute))
		if points == nil {
			points = []duckdb.SeriesPoint{}
		}
		return marshalResult(points, err)

	default:
		resp.Error = &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}
