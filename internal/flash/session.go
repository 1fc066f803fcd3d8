package flash

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

// SessionCookieName carries the session id for SessionStore.
const SessionCookieName = "flash_session"

// Backend is server-side storage keyed by session id.
type Backend interface {
	Set(ctx context.Context, key string, f models.Flash, ttl time.Duration) error
	// Take returns and removes the message, or nil if there is none.
	Take(ctx context.Context, key string) (*models.Flash, error)
}

// SessionStore keeps messages in a Backend and only an opaque id in the
// client's cookie.
type SessionStore struct {
	backend Backend
	ttl     time.Duration
}

func NewSessionStore(backend Backend, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &SessionStore{
		backend: backend,
		ttl:     ttl,
	}
}

func (s *SessionStore) Put(w http.ResponseWriter, r *http.Request, f models.Flash) error {
	id := uuid.NewString()
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}

	if err := s.backend.Set(r.Context(), id, f, s.ttl); err != nil {
		return err
	}

	setCookie(w, SessionCookieName, id, s.ttl)
	return nil
}

func (s *SessionStore) Pop(_ http.ResponseWriter, r *http.Request) (*models.Flash, error) {
	c, err := r.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(c.Value); err != nil {
		return nil, nil
	}

	return s.backend.Take(r.Context(), c.Value)
}
