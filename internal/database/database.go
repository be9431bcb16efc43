package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	_ "github.com/lib/pq"

	"github.com/cleberrangel/brickrate-api/internal/logger"
)

// Config contém as configurações de conexão com o banco
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// Pool: o backend só guarda algumas chaves, o pool é pequeno
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Tentativas de Ping no Connect (o banco pode subir depois da API)
	ConnectAttempts int
	RetryDelay      time.Duration
}

// PoolStats contains database connection pool statistics
type PoolStats struct {
	MaxOpenConnections int   `json:"max_open_connections"`
	OpenConnections    int   `json:"open_connections"`
	InUse              int   `json:"in_use"`
	Idle               int   `json:"idle"`
	WaitCount          int64 `json:"wait_count"`
	WaitDuration       int64 `json:"wait_duration_ms"`
	MaxIdleClosed      int64 `json:"max_idle_closed"`
	MaxLifetimeClosed  int64 `json:"max_lifetime_closed"`
}

// GetPoolStats returns current connection pool statistics
func GetPoolStats(db *sql.DB) PoolStats {
	stats := db.Stats()
	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.Milliseconds(),
		MaxIdleClosed:      stats.MaxIdleClosed + stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

// WithDefaults preenche os campos zerados
func (cfg Config) WithDefaults() Config {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return cfg
}

// DSN monta a URL postgres:// aceita pelo lib/pq, com usuário e senha escapados
func (cfg Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": []string{cfg.SSLMode}}.Encode(),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	return u.String()
}

// Connect abre o pool e espera o banco responder, com até ConnectAttempts pings
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	log := logger.Get(ctx)
	cfg = cfg.WithDefaults()

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("dbname", cfg.DBName).
		Str("sslmode", cfg.SSLMode).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Conectando ao PostgreSQL")

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := ping(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Msg("Conexão com PostgreSQL estabelecida")
	return db, nil
}

func ping(ctx context.Context, db *sql.DB, cfg Config) error {
	var err error
	for attempt := 1; attempt <= cfg.ConnectAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == cfg.ConnectAttempts {
			break
		}

		logger.Get(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", cfg.RetryDelay).
			Msg("PostgreSQL indisponível, tentando novamente")

		select {
		case <-ctx.Done():
			return fmt.Errorf("erro ao testar conexão: %w", ctx.Err())
		case <-time.After(cfg.RetryDelay):
		}
	}
	return fmt.Errorf("erro ao testar conexão após %d tentativas: %w", cfg.ConnectAttempts, err)
}

// Close fecha a conexão com o banco; aceita nil
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
