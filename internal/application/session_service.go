package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long an abandoned call session is retained.
const DefaultSessionTTL = time.Hour

// Session accumulates reservation fields for one call before the voice
// pipeline finalizes it through the upsert engine. Sessions are transient,
// process-local state.
type Session struct {
	CallSID string   `json:"callSid"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Date    string   `json:"date"`
	Time    string   `json:"time"`
	People  *int     `json:"people"`
	Items   []string `json:"items"`
	Notes   string   `json:"notes"`
}

type sessionEntry struct {
	session Session
	expiry  time.Time
}

// SessionService stores per-call sessions with TTL eviction, mirroring the
// gate's self-expiring discipline so abandoned calls cost no memory.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSessionService constructs a session service. Non-positive ttl selects
// the default.
func NewSessionService(ttl time.Duration, now func() time.Time, logger *slog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func blankSession(callSID string) Session {
	return Session{CallSID: callSID, Items: []string{}}
}

// Fetch returns the call's session, creating a blank one on first access.
func (s *SessionService) Fetch(ctx context.Context, callSID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeLocked(now)

	entry, ok := s.sessions[callSID]
	if !ok {
		entry = &sessionEntry{session: blankSession(callSID)}
		s.sessions[callSID] = entry
		serviceLogger(ctx, s.logger, "SessionService", "Fetch", "call_sid", callSID).
			InfoContext(ctx, "session created")
	}
	entry.expiry = now.Add(s.ttl)
	return cloneSession(entry.session)
}

// Apply merges non-empty update fields into the call's session, creating it
// when absent. Only the fields a session carries are applied; anything else
// in the update is ignored, matching the tolerant contract the voice
// pipeline has always relied on.
func (s *SessionService) Apply(ctx context.Context, callSID string, update map[string]any) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeLocked(now)

	entry, ok := s.sessions[callSID]
	if !ok {
		entry = &sessionEntry{session: blankSession(callSID)}
		s.sessions[callSID] = entry
	}
	entry.expiry = now.Add(s.ttl)

	session := &entry.session
	if v := trimmedString(update["name"]); v != "" {
		session.Name = v
	}
	if v := trimmedString(update["phone"]); v != "" {
		session.Phone = v
	}
	if v := trimmedString(update["date"]); v != "" {
		session.Date = v
	}
	if v := trimmedString(update["time"]); v != "" {
		session.Time = v
	}
	if v := trimmedString(update["notes"]); v != "" {
		session.Notes = v
	}
	if v := parseInt(update["people"]); v != nil {
		session.People = v
	}
	if v := stringSlice(update["items"]); len(v) > 0 {
		session.Items = v
	}

	serviceLogger(ctx, s.logger, "SessionService", "Apply", "call_sid", callSID).
		InfoContext(ctx, "session updated")
	return cloneSession(*session)
}

// Len reports the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(s.now())
	return len(s.sessions)
}

func (s *SessionService) purgeLocked(now time.Time) {
	for sid, entry := range s.sessions {
		if !entry.expiry.After(now) {
			delete(s.sessions, sid)
		}
	}
}

func cloneSession(session Session) Session {
	out := session
	if session.Items != nil {
		out.Items = make([]string, len(session.Items))
		copy(out.Items, session.Items)
	}
	if session.People != nil {
		people := *session.People
		out.People = &people
	}
	return out
}
