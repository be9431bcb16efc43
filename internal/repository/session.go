package repository

import (
	"context"
	"sync"
	"time"
)

// Session represents a login session record
type Session struct {
	Identity  string    `json:"identity"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRepository keeps sessionID -> Session under the session key
type SessionRepository struct {
	mu sync.Mutex
	kv KeyValueStore
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(kv KeyValueStore) *SessionRepository {
	return &SessionRepository{kv: kv}
}

// Create registers a session for the identity
func (r *SessionRepository) Create(ctx context.Context, sessionID, identity string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	session := Session{Identity: identity, Timestamp: time.Now().UTC()}
	sessions[sessionID] = session

	if err := setJSON(ctx, r.kv, SessionKey, sessions); err != nil {
		return nil, err
	}
	return &session, nil
}

// Get retrieves a session by ID (nil when not found)
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	session, ok := sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// Delete removes a session; unknown IDs are ignored
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := sessions[sessionID]; !ok {
		return nil
	}

	delete(sessions, sessionID)
	return setJSON(ctx, r.kv, SessionKey, sessions)
}

// DeleteExpired removes sessions created before the cutoff and returns how many were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for id, s := range sessions {
		if s.Timestamp.Before(cutoff) {
			delete(sessions, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if err := setJSON(ctx, r.kv, SessionKey, sessions); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *SessionRepository) load(ctx context.Context) (map[string]Session, error) {
	sessions := make(map[string]Session)
	if _, err := getJSON(ctx, r.kv, SessionKey, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = make(map[string]Session)
	}
	return sessions, nil
}
