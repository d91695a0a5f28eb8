// Package session keeps map sessions for the HTTP control surface.
//
// A [Session] pairs a [viewport.Viewport] with the [controller.Controller]
// that lays out markers on it. Sessions are live objects and are held in a
// [MemoryStore] with a sliding TTL. Their user-visible state (view,
// selection, filter) can additionally be written to a [FileStore] so that a
// restarted server can restore them:
//
//	store := session.NewMemoryStore(30 * time.Minute)
//	sess := session.New(v, c, store.TTL())
//	store.Put(ctx, sess)
//
//	// later
//	sess, err := store.Get(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // unknown or expired
//	}
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist or has expired.
	ErrNotFound = errors.New("session not found")
)

// DefaultTTL is the idle time after which a session expires.
const DefaultTTL = 30 * time.Minute

// Session is one live map.
type Session struct {
	ID         string
	Viewport   *viewport.Viewport
	Controller *controller.Controller
	CreatedAt  time.Time

	mu        sync.Mutex
	expiresAt time.Time
}

// NewID returns a random session ID.
func NewID() string {
	return uuid.NewString()
}

// New creates a session with a fresh ID.
func New(v *viewport.Viewport, c *controller.Controller, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:         NewID(),
		Viewport:   v,
		Controller: c,
		CreatedAt:  now,
		expiresAt:  now.Add(ttl),
	}
}

// ExpiresAt returns the current expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// IsExpired reports whether the session expired before now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// Touch extends the expiry to now+ttl.
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	s.expiresAt = now.Add(ttl)
	s.mu.Unlock()
}

// Close releases the controller.
func (s *Session) Close() {
	if s.Controller != nil {
		s.Controller.Close()
	}
}

// State is the persistable part of a session.
type State struct {
	ID        string      `json:"id"`
	Center    orb.Point   `json:"center"`
	Zoom      float64     `json:"zoom"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	Selected  string      `json:"selected,omitempty"`
	Filter    band.Filter `json:"filter"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// State captures the session's current view, selection and filter.
func (s *Session) State() State {
	t := s.Viewport.Transform()
	return State{
		ID:        s.ID,
		Center:    t.Center,
		Zoom:      t.Zoom,
		Width:     t.Width,
		Height:    t.Height,
		Selected:  s.Controller.Selected(),
		Filter:    s.Controller.Filter(),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt(),
	}
}

// Store holds live sessions.
type Store interface {
	// Get returns a live session and extends its expiry. Unknown and
	// expired sessions return ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	// Delete closes and removes a session. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, id string) error
	// Cleanup closes and removes expired sessions and returns how many
	// were removed.
	Cleanup(ctx context.Context) (int, error)
}

// Apply restores a persisted state onto the session. The controller must
// already be loaded.
func (s *Session) Apply(st State) error {
	s.ID = st.ID
	s.CreatedAt = st.CreatedAt
	if st.Width > 0 && st.Height > 0 {
		s.Viewport.Resize(st.Width, st.Height)
	}
	s.Controller.SetFilter(st.Filter)
	if st.Selected != "" {
		if err := s.Controller.Select(st.Selected); err != nil {
			return err
		}
	}
	s.Viewport.SetView(st.Center, st.Zoom)
	return nil
}
