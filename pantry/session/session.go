// session/session.go
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Session is the per-visitor key/value state carried between requests.
type Session struct {
	mu        sync.RWMutex
	id        string
	data      map[string]string
	isNew     bool
	modified  bool
	expiresAt time.Time
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool { return s.isNew }

// Get retrieves a value from the session.
func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores a value and marks the session for saving.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.modified = true
}

// Delete removes a value. Deleting a missing key does not mark the session.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.modified = true
}

// Modified reports whether the session needs to be persisted.
func (s *Session) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// ExpiresAt returns when the session expires.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Store is a session storage backend.
type Store interface {
	// Load returns ErrNotFound (or ErrExpired) when there is nothing usable.
	Load(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Record is the serialized form of a session held by a Store.
type Record struct {
	ID        string            `json:"id"`
	Data      map[string]string `json:"data"`
	ExpiresAt time.Time         `json:"expires_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Record) UnmarshalBinary(b []byte) error {
	return json.Unmarshal(b, r)
}

var (
	ErrNotFound      = errors.New("session: not found")
	ErrExpired       = errors.New("session: expired")
	ErrBadSignature  = errors.New("session: bad cookie signature")
	ErrNoSecret      = errors.New("session: secret key required")
	errStoreRequired = errors.New("session: store required")
)

func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Options configures a Manager.
type Options struct {
	// CookieName defaults to "corpsite_session".
	CookieName string
	// MaxAge is the session lifetime. Default 24h.
	MaxAge time.Duration
	// SecretKey signs the cookie value. Required.
	SecretKey string
	// Secure sets the cookie Secure flag (on when serving HTTPS).
	Secure bool
}

// Manager loads and saves sessions. The cookie holds "<id>.<signature>",
// where the signature is an HMAC-SHA256 of the id under SecretKey; the data
// itself stays in the Store.
type Manager struct {
	store  Store
	opts   Options
	secret []byte
}

// NewManager validates opts and applies defaults.
func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errStoreRequired
	}
	if opts.SecretKey == "" {
		return nil, ErrNoSecret
	}
	if opts.CookieName == "" {
		opts.CookieName = "corpsite_session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	return &Manager{store: store, opts: opts, secret: []byte(opts.SecretKey)}, nil
}

// Get returns the request's session, or a fresh unmodified one when the
// cookie is absent, tampered with, or points at nothing.
func (m *Manager) Get(r *http.Request) (*Session, error) {
	if c, err := r.Cookie(m.opts.CookieName); err == nil && c.Value != "" {
		if id, err := m.verify(c.Value); err == nil {
			rec, err := m.store.Load(r.Context(), id)
			switch {
			case err == nil && time.Now().Before(rec.ExpiresAt):
				if rec.Data == nil {
					rec.Data = map[string]string{}
				}
				return &Session{id: rec.ID, data: rec.Data, expiresAt: rec.ExpiresAt}, nil
			case err == nil, errors.Is(err, ErrExpired):
				_ = m.store.Delete(r.Context(), id)
			case !errors.Is(err, ErrNotFound):
				return nil, err
			}
		}
	}
	return m.New()
}

// New creates an empty session. It is not persisted until a value is set.
func (m *Manager) New() (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:        id,
		data:      map[string]string{},
		isNew:     true,
		expiresAt: time.Now().Add(m.opts.MaxAge),
	}, nil
}

// Save persists s and (re)sets the signed cookie.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	s.mu.Lock()
	s.expiresAt = time.Now().Add(m.opts.MaxAge)
	rec := &Record{
		ID:        s.id,
		Data:      make(map[string]string, len(s.data)),
		ExpiresAt: s.expiresAt,
		UpdatedAt: time.Now(),
	}
	for k, v := range s.data {
		rec.Data[k] = v
	}
	s.modified = false
	s.mu.Unlock()

	if err := m.store.Save(r.Context(), rec); err != nil {
		return err
	}

	http.SetCookie(w, m.cookie(m.sign(s.id), int(m.opts.MaxAge.Seconds())))
	return nil
}

// Destroy deletes s from the store and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request, s *Session) error {
	if err := m.store.Delete(r.Context(), s.id); err != nil {
		return err
	}
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

// Store returns the backend, e.g. for health checks.
func (m *Manager) Store() Store { return m.store }

// Close closes the backend.
func (m *Manager) Close() error { return m.store.Close() }

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", ErrBadSignature
	}
	id := value[:i]
	if !hmac.Equal([]byte(m.sign(id)), []byte(value)) {
		return "", ErrBadSignature
	}
	return id, nil
}
