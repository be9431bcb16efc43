package repository

import (
	"context"
	"sync"
	"time"
)

// Credential represents a registered identity
type Credential struct {
	Secret    string    `json:"secret"` // bcrypt hash, never the raw password
	CreatedAt time.Time `json:"created_at"`
}

// UserRepository handles credential data stored under the users key
type UserRepository struct {
	mu sync.Mutex
	kv KeyValueStore
}

// NewUserRepository creates a new user repository
func NewUserRepository(kv KeyValueStore) *UserRepository {
	return &UserRepository{kv: kv}
}

// GetByIdentity retrieves the credential of an identity (nil when not found)
func (r *UserRepository) GetByIdentity(ctx context.Context, identity string) (*Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	cred, ok := users[identity]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

// Create stores a new credential, overwriting any previous one
func (r *UserRepository) Create(ctx context.Context, identity, secretHash string) (*Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	cred := Credential{Secret: secretHash, CreatedAt: time.Now().UTC()}
	users[identity] = cred

	if err := setJSON(ctx, r.kv, UsersKey, users); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Count returns the number of registered identities
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (r *UserRepository) load(ctx context.Context) (map[string]Credential, error) {
	users := make(map[string]Credential)
	if _, err := getJSON(ctx, r.kv, UsersKey, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = make(map[string]Credential)
	}
	return users, nil
}
