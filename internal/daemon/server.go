package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/kestrel-forge/codegraphd/internal/pipeline"
)

// connDeadline bounds how long a single request has to be read and
// answered, so one slow/hung client can't pin a worker goroutine forever.
const connDeadline = 30 * time.Second

// Server listens on a Unix-domain socket and dispatches line-delimited
// JSON-RPC 2.0 requests against a Registry of open projects.
type Server struct {
	SocketPath string
	Registry   *Registry
	Metrics    *Metrics
	Logger     *slog.Logger

	listener net.Listener
	started  time.Time

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer builds a Server bound to socketPath once ListenAndServe runs.
func NewServer(socketPath string, registry *Registry, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{SocketPath: socketPath, Registry: registry, Metrics: metrics, Logger: logger}
}

// ListenAndServe binds the socket and serves connections until ctx is
// cancelled, then waits for in-flight connections to finish before
// returning (graceful shutdown).
func (s *Server) ListenAndServe(ctx context.Context) error {
	_ = os.Remove(s.SocketPath)

	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("daemon: listen on %s: %w", s.SocketPath, err)
	}
	s.listener = listener
	s.started = time.Now()
	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.SocketPath)
	}()

	s.Logger.Info("daemon: listening", slog.String("socket", s.SocketPath))

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			s.Logger.Error("daemon: accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// handleConnection decodes exactly one JSON-RPC request per line, per the
// protocol's line-delimited framing, answering each with a matching
// response before reading the next.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		if err := conn.SetDeadline(time.Now().Add(connDeadline)); err != nil {
			s.Logger.Warn("daemon: set connection deadline", slog.String("error", err.Error()))
		}

		var req Request
		if err := decoder.Decode(&req); err != nil {
			return
		}

		if err := ValidateID(req.ID); err != nil {
			_ = encoder.Encode(NewError(req.ID, ErrCodeInvalidRequest, err.Error()))
			continue
		}

		resp := s.handleRequest(ctx, req)
		if req.IsNotification() {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

// handleRequest dispatches one decoded request to its method handler.
func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case MethodRegisterProject:
		return s.handleRegisterProject(ctx, req)
	case MethodActivateProject:
		return s.handleActivateProject(ctx, req)
	case MethodShutdown:
		return s.handleShutdown(req)
	case MethodStatus:
		return NewResult(req.ID, s.status())
	case MethodHealth:
		return NewResult(req.ID, s.health())
	case MethodSyncProgress:
		return s.handleSyncProgress(req)
	case MethodReindex:
		return s.handleReindex(ctx, req)
	case MethodToolsCall:
		return s.handleToolsCall(ctx, req)
	default:
		return NewError(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleRegisterProject(ctx context.Context, req Request) Response {
	var params RegisterProjectParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewError(req.ID, ErrCodeInvalidParams, err.Error())
	}
	p, err := s.Registry.Register(ctx, params.ProjectPath)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return NewResult(req.ID, ProjectResult{ProjectUUID: p.UUID, Watching: p.Watching()})
}

func (s *Server) handleActivateProject(ctx context.Context, req Request) Response {
	var params ActivateProjectParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewError(req.ID, ErrCodeInvalidParams, err.Error())
	}
	p, ok := s.Registry.GetByPath(params.ProjectPath)
	if !ok {
		var err error
		p, err = s.Registry.Register(ctx, params.ProjectPath)
		if err != nil {
			return errorResponse(req.ID, err)
		}
	}
	if params.Watch {
		if err := p.Watch(ctx, s.Registry.Home); err != nil {
			return errorResponse(req.ID, err)
		}
	}
	return NewResult(req.ID, ProjectResult{ProjectUUID: p.UUID, Watching: p.Watching()})
}

func (s *Server) handleShutdown(req Request) Response {
	go func() {
		time.Sleep(50 * time.Millisecond) // let the response flush first
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
	}()
	return NewResult(req.ID, map[string]bool{"ok": true})
}

func (s *Server) status() StatusResult {
	return StatusResult{
		PID:            os.Getpid(),
		UptimeSeconds:  int64(s.Registry.Uptime().Seconds()),
		ProjectsLoaded: s.Registry.Count(),
		Projects:       s.Registry.Snapshot(),
	}
}

func (s *Server) health() HealthResult {
	return HealthResult{SocketBound: s.listener != nil, Reachable: true}
}

func (s *Server) handleSyncProgress(req Request) Response {
	var params RegisterProjectParams
	_ = json.Unmarshal(req.Params, &params)
	p, ok := s.Registry.GetByPath(params.ProjectPath)
	if !ok {
		return NewError(req.ID, ErrCodeNotFound, fmt.Sprintf("project %s is not registered", params.ProjectPath))
	}
	// Sync runs synchronously within reindex/full-sync calls (no
	// background goroutine to poll mid-run): a caller only ever observes
	// "done" here, the running/progress fields exist for wire-compatibility
	// with the polling contract.
	return NewResult(req.ID, SyncProgressResult{
		Running: false,
		Done:    true,
		Message: fmt.Sprintf("last sync at %d", p.LastSyncedAt()),
	})
}

func (s *Server) handleReindex(ctx context.Context, req Request) Response {
	var params ReindexParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewError(req.ID, ErrCodeInvalidParams, err.Error())
	}
	p, ok := s.Registry.GetByPath(params.ProjectPath)
	if !ok {
		return NewError(req.ID, ErrCodeNotFound, fmt.Sprintf("project %s is not registered", params.ProjectPath))
	}

	start := time.Now()
	if params.Path != "" {
		if err := p.ReindexPath(ctx, s.Registry.Home, params.Path); err != nil {
			return errorResponse(req.ID, err)
		}
		return NewResult(req.ID, ReindexResult{FilesParsed: 1, DurationMS: time.Since(start).Milliseconds()})
	}

	result, err := p.Sync(ctx, s.Registry.Home)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	if s.Metrics != nil {
		s.Metrics.RecordSync(result, time.Since(start))
	}
	return NewResult(req.ID, reindexResultFrom(result, time.Since(start)))
}

func reindexResultFrom(r *pipeline.Result, elapsed time.Duration) ReindexResult {
	if r == nil {
		return ReindexResult{DurationMS: elapsed.Milliseconds()}
	}
	return ReindexResult{
		FilesScanned:       r.FilesScanned,
		FilesParsed:        r.FilesParsed,
		FilesDeleted:       r.FilesDeleted,
		ChunksEmbedded:     r.ChunksEmbedded,
		ReferencesResolved: r.ReferencesResolved,
		DurationMS:         elapsed.Milliseconds(),
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) Response {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewError(req.ID, ErrCodeInvalidParams, err.Error())
	}
	p, ok := s.Registry.GetByPath(params.ProjectPath)
	if !ok {
		return NewError(req.ID, ErrCodeNotFound, fmt.Sprintf("project %s is not registered", params.ProjectPath))
	}

	start := time.Now()
	result, err := dispatchTool(ctx, p, params.Name, params.Arguments)
	if s.Metrics != nil {
		s.Metrics.RecordQuery(time.Since(start))
	}
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return NewResult(req.ID, result)
}

// errorResponse maps a Go error to its JSON-RPC error code, per the
// daemon's error taxonomy: notFoundError and notAvailableError both carry
// ErrCodeNotFound (the same code as an unregistered project, told apart
// only by the message), every other error is an opaque internal error (no
// internal detail leaked past the message string, which is already
// operator-facing only).
func errorResponse(id string, err error) Response {
	switch err.(type) {
	case notFoundError:
		return NewError(id, ErrCodeNotFound, err.Error())
	case notAvailableError:
		return NewError(id, ErrCodeNotFound, err.Error())
	default:
		return NewError(id, ErrCodeInternalError, err.Error())
	}
}

// Close stops the server, causing ListenAndServe to return once in-flight
// connections drain.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
