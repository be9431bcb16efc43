package database

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"testing"
	"time"
)

func TestWithDefaults(t *testing.T) {
	cfg := Config{Host: "localhost", Port: "5432", User: "test", DBName: "test"}.WithDefaults()

	if cfg.MaxOpenConns != 10 || cfg.MaxIdleConns != 5 {
		t.Errorf("pool = %d/%d, want 10/5", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 30*time.Minute || cfg.ConnMaxIdleTime != 5*time.Minute {
		t.Errorf("lifetimes = %v/%v", cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("expected sslmode default 'disable', got %q", cfg.SSLMode)
	}
	if cfg.ConnectAttempts != 5 || cfg.RetryDelay != time.Second {
		t.Errorf("retry = %d x %v", cfg.ConnectAttempts, cfg.RetryDelay)
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		MaxOpenConns:    3,
		MaxIdleConns:    1,
		ConnMaxLifetime: 9 * time.Minute,
		ConnMaxIdleTime: 4 * time.Minute,
		SSLMode:         "require",
		ConnectAttempts: 1,
	}.WithDefaults()

	if cfg.MaxOpenConns != 3 || cfg.MaxIdleConns != 1 || cfg.ConnMaxLifetime != 9*time.Minute || cfg.ConnMaxIdleTime != 4*time.Minute {
		t.Errorf("explicit pool values were overwritten: %+v", cfg)
	}
	if cfg.SSLMode != "require" || cfg.ConnectAttempts != 1 {
		t.Errorf("explicit values were overwritten: %+v", cfg)
	}
}

func TestWithDefaultsCapsIdle(t *testing.T) {
	cfg := Config{MaxOpenConns: 2, MaxIdleConns: 8}.WithDefaults()
	if cfg.MaxIdleConns != 2 {
		t.Errorf("MaxIdleConns = %d, want capped at 2", cfg.MaxIdleConns)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		user     string
		password string
		hasPass  bool
	}{
		{"plain", Config{Host: "db", Port: "5433", User: "u", Password: "p", DBName: "brickrate", SSLMode: "disable"}, "u", "p", true},
		{"escaped", Config{Host: "db", Port: "5433", User: "u", Password: "p@ss w/rd", DBName: "brickrate", SSLMode: "disable"}, "u", "p@ss w/rd", true},
		{"no password", Config{Host: "db", Port: "5433", User: "u", DBName: "brickrate", SSLMode: "disable"}, "u", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.cfg.DSN())
			if err != nil {
				t.Fatalf("parse %q: %v", tt.cfg.DSN(), err)
			}
			if u.Scheme != "postgres" || u.Host != "db:5433" || u.Path != "/brickrate" {
				t.Errorf("unexpected dsn %q", u)
			}
			if u.Query().Get("sslmode") != "disable" {
				t.Errorf("sslmode = %q", u.Query().Get("sslmode"))
			}
			pass, ok := u.User.Password()
			if u.User.Username() != tt.user || pass != tt.password || ok != tt.hasPass {
				t.Errorf("user info = %q %q %v", u.User.Username(), pass, ok)
			}
		})
	}
}

// TestConnectUnreachable verifica que Connect falha sem banco disponível
func TestConnectUnreachable(t *testing.T) {
	if os.Getenv("DB_HOST") != "" {
		t.Skip("PostgreSQL configurado; teste de falha não se aplica")
	}

	cfg := Config{Host: "127.0.0.1", Port: "1", User: "x", DBName: "x", ConnectAttempts: 2, RetryDelay: 10 * time.Millisecond}
	if _, err := Connect(context.Background(), cfg); err == nil {
		t.Fatal("expected error connecting to closed port")
	}
}

func TestConnectHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Host: "127.0.0.1", Port: "1", User: "x", DBName: "x", ConnectAttempts: 50, RetryDelay: time.Hour}
	start := time.Now()
	if _, err := Connect(ctx, cfg); err == nil {
		t.Fatal("expected error with cancelled context")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Connect should stop retrying once the context is done")
	}
}

func TestGetPoolStats(t *testing.T) {
	// sql.Open não conecta; o pool nasce vazio
	db, err := sql.Open("postgres", Config{Host: "127.0.0.1", Port: "1", User: "x", DBName: "x"}.WithDefaults().DSN())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(7)

	stats := GetPoolStats(db)
	if stats.MaxOpenConnections != 7 {
		t.Errorf("MaxOpenConnections = %d, want 7", stats.MaxOpenConnections)
	}
	if stats.OpenConnections != 0 || stats.InUse != 0 {
		t.Errorf("unexpected open connections: %+v", stats)
	}
}
