package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/user-directory/backend/internal/service/directory"
)

var ErrSessionNotFound = errors.New("session not found")

var mountedViews = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "directory",
	Name:      "mounted_views",
	Help:      "Directory views currently mounted.",
})

// Session is one mounted directory view. Each session owns its store; records
// are never shared between sessions.
type Session struct {
	ID        string
	Store     *directory.Store
	CreatedAt time.Time
}

// Registry tracks mounted directory views.
type Registry struct {
	fetcher directory.Fetcher
	logger  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions fetch through fetcher.
func NewRegistry(fetcher directory.Fetcher, logger zerolog.Logger) *Registry {
	return &Registry{
		fetcher:  fetcher,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Mount creates a session and starts its fetch. The fetch is bound to ctx,
// so callers pass a context that ends when the view goes away.
func (r *Registry) Mount(ctx context.Context) *Session {
	id := uuid.NewString()
	logger := r.logger.With().Str("session_id", id).Logger()

	s := &Session{
		ID:        id,
		Store:     directory.NewStore(r.fetcher, logger),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	mountedViews.Inc()

	s.Store.InitializeFetch(ctx)
	logger.Debug().Msg("view mounted")
	return s
}

// Get retrieves a mounted session by identifier.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Unmount discards a session and its state.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.Store.Unmount()
	mountedViews.Dec()
	r.logger.Debug().Str("session_id", id).Dur("age", time.Since(s.CreatedAt)).Msg("view unmounted")
	return nil
}

// Count returns the number of mounted sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
