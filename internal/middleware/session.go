package middleware

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/requestctx"
	"github.com/ericyum/tour-agent-frontend/internal/search"
)

const (
	defaultSessionCookie = "festmoment_session"
	defaultSessionMaxAge = 30 * 24 * time.Hour
)

// ErrInvalidSessionConfig is returned by NewSessionManager for unusable keys.
var ErrInvalidSessionConfig = errors.New("session: invalid config")

// SessionData is the visitor state carried in the signed cookie. The session
// id also names the visitor's itinerary.
type SessionData struct {
	ID        string         `json:"id"`
	Locale    string         `json:"locale,omitempty"`
	Filters   search.Filters `json:"filters"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`

	mu    sync.Mutex
	dirty bool
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.UpdatedAt = time.Now().UTC()
}

// SetFilters replaces the stored filters.
func (s *SessionData) SetFilters(f search.Filters) {
	s.mu.Lock()
	s.Filters = f
	s.mu.Unlock()
	s.MarkDirty()
}

// CurrentFilters returns the stored filters, normalised.
func (s *SessionData) CurrentFilters() search.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Filters.Normalize()
}

func (s *SessionData) isDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SessionConfig controls cookie encoding.
type SessionConfig struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte
	Secure     bool
	MaxAge     time.Duration
	Now        func() time.Time
}

// SessionManager encodes SessionData into signed (and optionally encrypted) cookies.
type SessionManager struct {
	cfg   SessionConfig
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewSessionManager builds a manager. An empty hash key generates a
// process-local one, which invalidates sessions on restart.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	if len(cfg.HashKey) == 0 {
		cfg.HashKey = securecookie.GenerateRandomKey(32)
		if cfg.HashKey == nil {
			return nil, fmt.Errorf("%w: unable to generate hash key", ErrInvalidSessionConfig)
		}
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidSessionConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultSessionCookie
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultSessionMaxAge
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.MaxAge.Seconds()))

	return &SessionManager{cfg: cfg, codec: codec, now: now}, nil
}

// Load decodes the request's session or starts a fresh one. The bool reports
// whether the session came from a valid cookie.
func (m *SessionManager) Load(r *http.Request) (*SessionData, bool) {
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		var sd SessionData
		if err := m.codec.Decode(m.cfg.CookieName, c.Value, &sd); err == nil && sd.ID != "" {
			return &sd, true
		}
	}
	now := m.now().UTC()
	return &SessionData{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Filters:   search.DefaultFilters(),
		CreatedAt: now,
		UpdatedAt: now,
		dirty:     true,
	}, false
}

// Save writes the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, sd *SessionData) error {
	sd.mu.Lock()
	encoded, err := m.codec.Encode(m.cfg.CookieName, sd)
	sd.dirty = false
	sd.mu.Unlock()
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.cfg.MaxAge.Seconds()),
		Expires:  m.now().Add(m.cfg.MaxAge),
	})
	return nil
}

// Session loads or initializes a session, stores it in the request context and
// writes the cookie back before the first byte of the response when it changed.
func Session(m *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, _ := m.Load(r)
			ctx := WithSession(r.Context(), sd)
			r = r.WithContext(ctx)

			sw := &sessionWriter{ResponseWriter: w, flush: func(w http.ResponseWriter) {
				if !sd.isDirty() {
					return
				}
				if err := m.Save(w, sd); err != nil {
					requestctx.Logger(ctx).Warn("session save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r)
			// nothing written (e.g. HEAD): persist now
			sw.before()
		})
	}
}

// GetSession returns session data from the request, or an empty session.
func GetSession(r *http.Request) *SessionData {
	if sd := SessionFromContext(r.Context()); sd != nil {
		return sd
	}
	return &SessionData{Filters: search.DefaultFilters()}
}

type sessionWriter struct {
	http.ResponseWriter
	flush func(http.ResponseWriter)
	once  sync.Once
}

func (w *sessionWriter) before() {
	w.once.Do(func() { w.flush(w.ResponseWriter) })
}

func (w *sessionWriter) WriteHeader(status int) {
	w.before()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.before()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// randomKey returns n random bytes or nil.
func randomKey(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil
	}
	return b
}
