package repository

import (
	"context"
	"os"
	"testing"

	"github.com/cleberrangel/brickrate-api/internal/database"
	"github.com/cleberrangel/brickrate-api/internal/migration"
)

// Requer um PostgreSQL acessível (DB_HOST, DB_USER, DB_PASSWORD, DB_NAME)
func TestPostgresStore(t *testing.T) {
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST não definido; pulando teste com PostgreSQL")
	}

	db, err := database.Connect(context.Background(), database.Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     envOr("DB_PORT", "5432"),
		User:     envOr("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   envOr("DB_NAME", "brickrate"),
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if err := migration.NewMigrator(db).Run(context.Background()); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	ctx := context.Background()
	kv := NewPostgresStore(db)
	key := "test_" + t.Name()
	defer kv.Delete(ctx, key)

	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	store := &QuoteStore{kv: kv, key: key, capacity: MaxQuotes}
	for _, avg := range []int64{1, 2} {
		if err := store.Insert(ctx, quote(avg)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(quotes) != 2 || quotes[0].AvgTotal != 2 {
		t.Errorf("quotes = %+v", quotes)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
