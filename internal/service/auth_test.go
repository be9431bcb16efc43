package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/repository"
)

func newTestAuthService(ttl time.Duration) *AuthService {
	kv := repository.NewMemoryStore()
	return NewAuthService(repository.NewUserRepository(kv), repository.NewSessionRepository(kv), ttl)
}

func TestSignupOpensSession(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuthService(time.Hour)

	user, err := auth.Signup(ctx, " asha@example.com ", "secret123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Identity != "asha@example.com" || user.DisplayName != "asha" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.SessionID == "" {
		t.Fatal("expected a session ID")
	}

	current, err := auth.CurrentUser(ctx, user.SessionID)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if current.Identity != user.Identity {
		t.Errorf("CurrentUser = %q, want %q", current.Identity, user.Identity)
	}
}

func TestSignupDuplicate(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuthService(time.Hour)

	if _, err := auth.Signup(ctx, "asha@example.com", "secret123"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := auth.Signup(ctx, "asha@example.com", "other123"); !errors.Is(err, model.ErrUserAlreadyExists) {
		t.Errorf("err = %v, want ErrUserAlreadyExists", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuthService(time.Hour)

	if _, err := auth.Signup(ctx, "asha@example.com", "secret123"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "asha@example.com", "secret123", nil},
		{"wrong password", "asha@example.com", "nope", model.ErrInvalidCredentials},
		{"unknown user", "ravi@example.com", "secret123", model.ErrInvalidCredentials},
		{"empty", "", "", model.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := auth.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user.SessionID == "" {
				t.Error("expected session")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuthService(time.Hour)

	user, err := auth.Signup(ctx, "asha@example.com", "secret123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if err := auth.Logout(ctx, user.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := auth.CurrentUser(ctx, user.SessionID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if err := auth.Logout(ctx, ""); err != nil {
		t.Errorf("empty logout should be a no-op: %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuthService(time.Hour)

	user, err := auth.Signup(ctx, "asha@example.com", "secret123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := auth.CurrentUser(ctx, user.SessionID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}

	// Sessão expirada é removida na leitura
	auth.now = time.Now
	if _, err := auth.CurrentUser(ctx, user.SessionID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("expired session should have been deleted, err = %v", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuthService(time.Hour)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := auth.Signup(ctx, email, "secret123"); err != nil {
			t.Fatalf("Signup: %v", err)
		}
	}

	removed, err := auth.CleanupExpiredSessions(ctx)
	if err != nil || removed != 0 {
		t.Fatalf("fresh sessions removed=%d err=%v", removed, err)
	}

	auth.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	removed, err = auth.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret123" {
		t.Error("hash should differ from password")
	}
	if !CheckPassword("secret123", hash) {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword should reject a wrong password")
	}
}
