package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// defaultClientTimeout bounds how long a single request/response round
// trip is given before the CLI gives up on the daemon.
const defaultClientTimeout = 10 * time.Second

// Client is the CLI launcher's connection to a running daemon's
// Unix-domain socket.
type Client struct {
	socketPath string
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient builds a Client for socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultClientTimeout}
}

// IsRunning reports whether a daemon is currently accepting connections
// on the socket.
func (c *Client) IsRunning() bool {
	conn, err := c.connect()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Status calls daemon/status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var result StatusResult
	if err := c.call(ctx, MethodStatus, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health calls daemon/health.
func (c *Client) Health(ctx context.Context) (*HealthResult, error) {
	var result HealthResult
	if err := c.call(ctx, MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterProject calls daemon/register_project.
func (c *Client) RegisterProject(ctx context.Context, projectPath string) (*ProjectResult, error) {
	var result ProjectResult
	if err := c.call(ctx, MethodRegisterProject, RegisterProjectParams{ProjectPath: projectPath}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reindex calls reindex for the given project, optionally scoped to a
// single path.
func (c *Client) Reindex(ctx context.Context, projectPath, path string, force bool) (*ReindexResult, error) {
	var result ReindexResult
	params := ReindexParams{ProjectPath: projectPath, Path: path, Force: force}
	if err := c.call(ctx, MethodReindex, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown calls daemon/shutdown.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.call(ctx, MethodShutdown, nil, nil)
}

func (c *Client) connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("daemon: connect to %s: %w", c.socketPath, err)
	}
	return conn, nil
}

func (c *Client) nextID() string {
	return fmt.Sprintf("cli-%d", c.requestID.Add(1))
}

// call sends one request and decodes its result into out (skipped if
// out is nil).
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("daemon: set deadline: %w", err)
	}

	var rawParams json.RawMessage
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("daemon: encode params: %w", err)
		}
	}

	req := Request{JSONRPC: "2.0", ID: c.nextID(), Method: method, Params: rawParams}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("daemon: send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("daemon: receive response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("daemon: %s failed: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
	}
	if out == nil {
		return nil
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("daemon: re-marshal result: %w", err)
	}
	return json.Unmarshal(data, out)
}
