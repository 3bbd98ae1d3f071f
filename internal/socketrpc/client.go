package socketrpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/vwatch/internal/duckdb"
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

const callTimeout = 30 * time.Second

// Client talks to a running vwatch service over its Unix socket.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(method string, params any, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      c.nextID,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(callTimeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) Snapshot() (store.State, error) {
	var result store.State
	err := c.call("Snapshot", nil, &result)
	return result, err
}

func (c *Client) Summary() (metrics.Report, error) {
	var result metrics.Report
	err := c.call("Summary", nil, &result)
	return result, err
}

func (c *Client) SetSelectedProjects(ids []string) ([]string, error) {
	var result []string
	err := c.call("SetSelectedProjects", map[string]any{"Projects": ids}, &result)
	return result, err
}

func (c *Client) SetFilters(patch store.FilterPatch) (model.FilterOptions, error) {
	var result model.FilterOptions
	err := c.call("SetFilters", patch, &result)
	return result, err
}

func (c *Client) SetSettings(patch store.SettingsPatch) (model.UserSettings, error) {
	var result model.UserSettings
	err := c.call("SetSettings", patch, &result)
	return result, err
}

// Refresh blocks until the service has reloaded every dataset.
func (c *Client) Refresh() (store.State, error) {
	var result store.State
	err := c.call("Refresh", nil, &result)
	return result, err
}

// SetToken stores and validates a credential. A rejected token reports
// false with a nil error.
func (c *Client) SetToken(token string) (bool, error) {
	var result bool
	err := c.call("SetToken", map[string]any{"Token": token}, &result)
	return result, err
}

func (c *Client) ValidateToken() (bool, error) {
	var result bool
	err := c.call("ValidateToken", nil, &result)
	return result, err
}

func (c *Client) HasToken() (bool, error) {
	var result bool
	err := c.call("HasToken", nil, &result)
	return result, err
}

func (c *Client) Logout() error {
	return c.call("Logout", nil, nil)
}

func (c *Client) ProjectConfigs() ([]model.ProjectConfig, error) {
	var result []model.ProjectConfig
	err := c.call("ProjectConfigs", nil, &result)
	return result, err
}

func (c *Client) SaveProjectConfigs(cfgs []model.ProjectConfig) ([]model.ProjectConfig, error) {
	var result []model.ProjectConfig
	err := c.call("SaveProjectConfigs", map[string]any{"Configs": cfgs}, &result)
	return result, err
}

func (c *Client) RealtimeSeries(projectID string, minutes int) ([]duckdb.SeriesPoint, error) {
	var result []duckdb.SeriesPoint
	err := c.call("RealtimeSeries", map[string]any{"Project": projectID, "Minutes": minutes}, &result)
	return result, err
}
