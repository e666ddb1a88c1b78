package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultHome returns the daemon's home directory: $GOFER_HOME if set,
// otherwise ~/.gofer.
func DefaultHome() (string, error) {
	if h := os.Getenv("GOFER_HOME"); h != "" {
		return h, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("daemon: resolve home directory: %w", err)
	}
	return filepath.Join(dir, ".gofer"), nil
}

// snapshotEntry is one remembered project, persisted only so the uuid a
// project was first registered under survives a daemon restart — full
// registry persistence is an out-of-scope external collaborator; this is
// best-effort bookkeeping only, never the source of truth a client
// depends on (a client always re-registers a project's path explicitly).
type snapshotEntry struct {
	ProjectPath string `yaml:"project_path"`
	ProjectUUID string `yaml:"project_uuid"`
}

// Registry owns every currently-open Project for this daemon process,
// keyed by project uuid, plus the path->uuid lookup used to make
// daemon/register_project idempotent across repeated calls for the same
// path.
type Registry struct {
	Home string

	mu       sync.RWMutex
	byUUID   map[string]*Project
	byPath   map[string]string
	started  time.Time
	logger   *slog.Logger
}

// NewRegistry builds an empty Registry rooted at home, loading whatever
// path->uuid snapshot a previous run left behind.
func NewRegistry(home string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		Home:    home,
		byUUID:  make(map[string]*Project),
		byPath:  make(map[string]string),
		started: time.Now(),
		logger:  logger,
	}
	r.loadSnapshot()
	return r
}

func (r *Registry) snapshotPath() string {
	return filepath.Join(r.Home, "registry.yaml")
}

func (r *Registry) loadSnapshot() {
	data, err := os.ReadFile(r.snapshotPath())
	if err != nil {
		return
	}
	var entries []snapshotEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("daemon: discarding unreadable registry snapshot", slog.String("error", err.Error()))
		return
	}
	for _, e := range entries {
		r.byPath[e.ProjectPath] = e.ProjectUUID
	}
}

func (r *Registry) saveSnapshotLocked() {
	entries := make([]snapshotEntry, 0, len(r.byPath))
	for path, id := range r.byPath {
		entries = append(entries, snapshotEntry{ProjectPath: path, ProjectUUID: id})
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		r.logger.Warn("daemon: marshal registry snapshot", slog.String("error", err.Error()))
		return
	}
	if err := os.MkdirAll(r.Home, 0o755); err != nil {
		r.logger.Warn("daemon: create home directory", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(r.snapshotPath(), data, 0o644); err != nil {
		r.logger.Warn("daemon: write registry snapshot", slog.String("error", err.Error()))
	}
}

// Register opens (or re-opens) the project at path, reusing its
// previously-assigned uuid if one is on record. Calling Register twice
// for the same path is a no-op that returns the already-open Project.
func (r *Registry) Register(ctx context.Context, path string) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPath[path]; ok {
		if p, ok := r.byUUID[id]; ok {
			return p, nil
		}
		p, err := openProject(ctx, r.Home, path, id, r.logger)
		if err != nil {
			return nil, err
		}
		r.byUUID[id] = p
		return p, nil
	}

	p, err := openProject(ctx, r.Home, path, "", r.logger)
	if err != nil {
		return nil, err
	}
	r.byUUID[p.UUID] = p
	r.byPath[path] = p.UUID
	r.saveSnapshotLocked()
	return p, nil
}

// Get returns the open project for uuid, or (nil, false).
func (r *Registry) Get(projectUUID string) (*Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUUID[projectUUID]
	return p, ok
}

// GetByPath returns the open project registered under path, or (nil,
// false).
func (r *Registry) GetByPath(path string) (*Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	if !ok {
		return nil, false
	}
	p, ok := r.byUUID[id]
	return p, ok
}

// Activate starts watch on an already-registered project if requested.
func (r *Registry) Activate(ctx context.Context, projectUUID string, watch bool) (*Project, error) {
	p, ok := r.Get(projectUUID)
	if !ok {
		return nil, fmt.Errorf("daemon: project %s is not registered", projectUUID)
	}
	if watch {
		if err := p.Watch(ctx, r.Home); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Count returns how many projects are currently open.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUUID)
}

// Snapshot returns a point-in-time ProjectState for every open project,
// for daemon/status.
func (r *Registry) Snapshot() []ProjectState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProjectState, 0, len(r.byUUID))
	for _, p := range r.byUUID {
		out = append(out, ProjectState{
			ProjectPath:  p.Path,
			ProjectUUID:  p.UUID,
			Watching:     p.Watching(),
			EmbedderName: p.Pool.ModelName(),
			LastSyncedAt: p.LastSyncedAt(),
		})
	}
	return out
}

// Uptime is how long this registry (and so this daemon process) has been
// running.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.started)
}

// Shutdown closes every open project.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, p := range r.byUUID {
		if err := p.Close(r.Home); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.byUUID = make(map[string]*Project)
	return firstErr
}
