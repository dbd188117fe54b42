package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"hacktown/internal/agenda"
	appLog "hacktown/internal/log"
)

// CookieName carries the session id.
const CookieName = "hacktown_session"

// Session is the per-browser context handed to every handler. It exclusively
// owns one agenda; Lock serializes requests of the same session.
type Session struct {
	ID     string
	Agenda *agenda.Store

	mu       sync.Mutex
	lastSeen time.Time
}

// Lock and Unlock guard Agenda for the duration of one request.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager maps session ids to sessions. Sessions unused for longer than the
// idle timeout are dropped on the next lookup.
type Manager struct {
	// DefaultStart is handed to every new session's agenda.
	DefaultStart string

	days []string
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose agendas sort by days. A zero idle
// timeout keeps sessions forever.
func NewManager(days []string, idle time.Duration) *Manager {
	return &Manager{
		days:     days,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id, creating a fresh one (with a new id) when
// id is unknown or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)

	if s, ok := m.sessions[id]; ok && id != "" {
		s.lastSeen = now
		return s
	}

	store := agenda.NewStore(m.days)
	store.DefaultStart = m.DefaultStart
	s := &Session{
		ID:       uuid.NewString(),
		Agenda:   store,
		lastSeen: now,
	}
	m.sessions[s.ID] = s
	appLog.Debug("session created", "id", s.ID, "active", len(m.sessions))
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) pruneLocked(now time.Time) {
	if m.idle <= 0 {
		return
	}
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.idle {
			delete(m.sessions, id)
			appLog.Debug("session expired", "id", id)
		}
	}
}

// FromRequest resolves the session for r and makes sure the response carries
// its cookie.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) *Session {
	var id string
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}
	s := m.Get(id)
	if s.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}
