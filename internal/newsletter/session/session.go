// Package session provides opaque server-side sessions with pluggable
// storage. Session ids are random 256-bit values carried in a cookie; all
// state lives server side so a stolen cookie can be revoked by deleting the
// session key.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quillpost/quillpost/pkg/cryptox"
)

// ErrNoSession is returned by Store.Get when the id has no stored state.
var ErrNoSession = errors.New("session: not found")

// Store persists session attribute maps keyed by session id.
type Store interface {
	Get(ctx context.Context, id string) (map[string]string, error)
	Set(ctx context.Context, id string, attrs map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Attribute keys. Kept short since they hit the wire on every redis call.
const (
	attrUserID = "user_id"
	attrFlash  = "flash"
)

// DefaultTTL is how long an idle session survives before the store may
// drop it.
const DefaultTTL = 24 * time.Hour

// Manager loads and creates sessions against a Store.
type Manager struct {
	Store Store
	TTL   time.Duration
}

func (m *Manager) ttl() time.Duration {
	if m.TTL > 0 {
		return m.TTL
	}
	return DefaultTTL
}

// Load resolves a session id from a request cookie. An empty or unknown id
// yields a fresh anonymous session; nothing is written to the store until
// the first mutation.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.newAnonymous(), nil
	}

	attrs, err := m.Store.Get(ctx, id)
	if errors.Is(err, ErrNoSession) {
		return m.newAnonymous(), nil
	}
	if err != nil {
		return nil, err
	}
	return &Session{manager: m, id: id, attrs: attrs}, nil
}

func (m *Manager) newAnonymous() *Session {
	return &Session{
		manager: m,
		id:      cryptox.GenerateSessionID(),
		attrs:   map[string]string{},
		fresh:   true,
	}
}

// Session is a single client's server-side state. Not safe for concurrent
// use; each request works on its own instance.
type Session struct {
	manager *Manager
	id      string
	attrs   map[string]string

	// fresh means the id has never been written to the store, so the
	// cookie must be (re)issued on save.
	fresh bool
}

// ID returns the current session id.
func (s *Session) ID() string { return s.id }

// IsFresh reports whether the id changed since the session was loaded and
// the cookie needs reissuing.
func (s *Session) IsFresh() bool { return s.fresh }

// UserID returns the authenticated user id, if any.
func (s *Session) UserID() (uuid.UUID, bool) {
	raw, ok := s.attrs[attrUserID]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RotateID swaps the session onto a brand new id with NO attributes carried
// over. Called on every privilege change, before the new identity is stored,
// so a pre-login id planted by an attacker never becomes authenticated. The
// new key is written before the old one is deleted; a concurrent reader sees
// either the old session or the new one, never a half state.
func (s *Session) RotateID(ctx context.Context) error {
	oldID, wasFresh := s.id, s.fresh

	s.id = cryptox.GenerateSessionID()
	s.attrs = map[string]string{}
	s.fresh = true

	if err := s.manager.Store.Set(ctx, s.id, s.attrs, s.manager.ttl()); err != nil {
		return err
	}
	if !wasFresh {
		if err := s.manager.Store.Delete(ctx, oldID); err != nil {
			return err
		}
	}
	return nil
}

// SetUserID marks the session as authenticated. Callers must RotateID first.
func (s *Session) SetUserID(ctx context.Context, id uuid.UUID) error {
	s.attrs[attrUserID] = id.String()
	return s.save(ctx)
}

// Flash stores a one-shot message for the next page load.
func (s *Session) Flash(ctx context.Context, msg string) error {
	s.attrs[attrFlash] = msg
	return s.save(ctx)
}

// PopFlash returns and clears the pending flash message, if any.
func (s *Session) PopFlash(ctx context.Context) (string, error) {
	msg, ok := s.attrs[attrFlash]
	if !ok {
		return "", nil
	}
	delete(s.attrs, attrFlash)
	return msg, s.save(ctx)
}

// Destroy flushes all server-side state for this session.
func (s *Session) Destroy(ctx context.Context) error {
	id := s.id
	s.attrs = map[string]string{}
	s.id = cryptox.GenerateSessionID()
	s.fresh = true
	return s.manager.Store.Delete(ctx, id)
}

func (s *Session) save(ctx context.Context) error {
	return s.manager.Store.Set(ctx, s.id, s.attrs, s.manager.ttl())
}
