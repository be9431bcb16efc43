package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/repository"
)

// DefaultSessionTTL é a validade padrão de uma sessão
const DefaultSessionTTL = 24 * time.Hour

// User é a identidade logada associada a uma sessão
type User struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	SessionID   string    `json:"-"`
	LoggedInAt  time.Time `json:"logged_in_at"`
}

// AuthService cuida de cadastro, login e sessões
type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// DisplayName retorna a parte do email antes do '@'
func DisplayName(identity string) string {
	if i := strings.Index(identity, "@"); i >= 0 {
		return identity[:i]
	}
	return identity
}

// Signup cadastra a identidade e já abre uma sessão
func (s *AuthService) Signup(ctx context.Context, email, password string) (*User, error) {
	email = normalizeIdentity(email)
	if email == "" || password == "" {
		return nil, model.ErrInvalidCredentials
	}

	existing, err := s.users.GetByIdentity(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar usuário: %w", err)
	}
	if existing != nil {
		return nil, model.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar hash da senha: %w", err)
	}

	if _, err := s.users.Create(ctx, email, hash); err != nil {
		return nil, fmt.Errorf("erro ao criar usuário: %w", err)
	}

	logger.Get(ctx).Info().Str("identity", email).Msg("Usuário cadastrado")
	return s.openSession(ctx, email)
}

// Login valida as credenciais e abre uma sessão
func (s *AuthService) Login(ctx context.Context, email, password string) (*User, error) {
	email = normalizeIdentity(email)
	if email == "" || password == "" {
		return nil, model.ErrInvalidCredentials
	}

	cred, err := s.users.GetByIdentity(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar usuário: %w", err)
	}
	if cred == nil || !CheckPassword(password, cred.Secret) {
		return nil, model.ErrInvalidCredentials
	}

	return s.openSession(ctx, email)
}

// Logout encerra a sessão; sessão desconhecida não é erro
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("erro ao remover sessão: %w", err)
	}
	return nil
}

// CurrentUser resolve a sessão para o usuário logado
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, model.ErrSessionNotFound
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar sessão: %w", err)
	}
	if session == nil {
		return nil, model.ErrSessionNotFound
	}

	if s.now().After(session.Timestamp.Add(s.ttl)) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			logger.Get(ctx).Warn().Err(err).Msg("Falha ao remover sessão expirada")
		}
		return nil, model.ErrSessionNotFound
	}

	return &User{
		Identity:    session.Identity,
		DisplayName: DisplayName(session.Identity),
		SessionID:   sessionID,
		LoggedInAt:  session.Timestamp,
	}, nil
}

// UserCount retorna quantas identidades estão cadastradas
func (s *AuthService) UserCount(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}

// CleanupExpiredSessions remove sessões vencidas
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, s.now().Add(-s.ttl))
}

// StartSessionCleanup starts a goroutine to periodically clean up expired sessions
func (s *AuthService) StartSessionCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.CleanupExpiredSessions(ctx)
				if err != nil {
					logger.Global().Error().Err(err).Msg("Erro na limpeza de sessões")
					continue
				}
				if removed > 0 {
					logger.Global().Info().Int("removed", removed).Msg("Sessões expiradas removidas")
				}
			}
		}
	}()
}

func (s *AuthService) openSession(ctx context.Context, identity string) (*User, error) {
	sessionID := uuid.New().String()
	session, err := s.sessions.Create(ctx, sessionID, identity)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar sessão: %w", err)
	}

	return &User{
		Identity:    identity,
		DisplayName: DisplayName(identity),
		SessionID:   sessionID,
		LoggedInAt:  session.Timestamp,
	}, nil
}

func normalizeIdentity(email string) string {
	return strings.TrimSpace(email)
}
