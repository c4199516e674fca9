// Package webserver provides session management for the web frontend
package webserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/monitoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one browser's page state
type Session struct {
	ID        string
	Holder    *recipe.Holder
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

type sessionKey struct{}

// SessionStore manages page sessions in memory
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	config   config.SessionConfig
	metrics  *monitoring.MetricsCollector
	logger   *zap.Logger
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSessionStore creates a new session store. Call Start to begin expiring
// idle sessions.
func NewSessionStore(cfg config.SessionConfig, metrics *monitoring.MetricsCollector, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		config:   cfg,
		metrics:  metrics,
		logger:   logger.Named("sessions"),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Middleware attaches the caller's session to the request context, creating
// one and setting the cookie when the browser has none
func (s *SessionStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := s.lookup(r)
		if session == nil {
			session = s.create()
			http.SetCookie(w, s.cookie(session))
		}
		session.touch(s.now())
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

// SessionFromContext returns the session attached by Middleware
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*Session)
	return session, ok
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start runs the cleanup loop until Stop is called
func (s *SessionStore) Start() {
	interval := s.config.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it to exit
func (s *SessionStore) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cleanup removes sessions idle for longer than the configured TTL
func (s *SessionStore) Cleanup() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	for id, session := range s.sessions {
		if session.idleSince(now) > s.config.TTL {
			delete(s.sessions, id)
			removed++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	if removed > 0 {
		s.logger.Debug("Cleaned up idle sessions",
			zap.Int("removed", removed),
			zap.Int("active", count),
		)
	}
	return removed
}

func (s *SessionStore) lookup(r *http.Request) *Session {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil {
		return nil
	}
	s.mu.RLock()
	session := s.sessions[cookie.Value]
	s.mu.RUnlock()
	if session == nil || session.idleSince(s.now()) > s.config.TTL {
		return nil
	}
	return session
}

func (s *SessionStore) create() *Session {
	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		Holder:    recipe.NewHolder(),
		CreatedAt: now,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	return session
}

func (s *SessionStore) cookie(session *Session) *http.Cookie {
	return &http.Cookie{
		Name:     s.config.CookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.TTL.Seconds()),
	}
}
