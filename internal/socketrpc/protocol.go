package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 method reference. One request and one response per line.
//
//   Method               Params                                   Result
//   ──────────────────   ──────────────────────────────────────   ─────────────────────
//   Snapshot             (none)                                   store.State
//   Summary              (none)                                   metrics.Report
//   SetSelectedProjects  {Projects: []string}                     []string
//   SetFilters           store.FilterPatch                        model.FilterOptions
//   SetSettings          store.SettingsPatch                      model.UserSettings
//   Refresh              (none)                                   store.State
//   SetToken             {Token: string}                          bool
//   ValidateToken        (none)                                   bool
//   HasToken             (none)                                   bool
//   Logout               (none)                                   bool
//   ProjectConfigs       (none)                                   []model.ProjectConfig
//   SaveProjectConfigs   {Configs: []model.ProjectConfig}         []model.ProjectConfig
//   RealtimeSeries       {Project: string, Minutes: int}          []duckdb.SeriesPoint
//
// Error codes:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params (including a blank token)
//   -32603  Internal error (marshal failure)
//   -32000  Application error (refresh, upstream or history failure)

// Error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeApplication    = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath prefers $XDG_RUNTIME_DIR/vwatch/vwatch.sock and falls
// back to ~/.local/state/vwatch/vwatch.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "vwatch", "vwatch.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vwatch.sock")
	}
	return filepath.Join(home, ".local", "state", "vwatch", "vwatch.sock")
}
