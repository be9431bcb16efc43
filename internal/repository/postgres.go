package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/brickrate-api/internal/logger"
)

// PostgresStore persiste as chaves na tabela kv_store
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore cria um store sobre uma conexão já migrada
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get busca o valor de uma chave
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("erro ao buscar chave: %w", err)
	}

	return value, true, nil
}

// Set insere ou atualiza o valor de uma chave
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	// JSONB recebe texto; []byte seria enviado como bytea
	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		logger.Get(ctx).Error().Err(err).Str("key", key).Msg("Erro ao gravar chave")
		return fmt.Errorf("erro ao gravar chave: %w", err)
	}

	return nil
}

// Delete remove uma chave
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("erro ao remover chave: %w", err)
	}
	return nil
}

// Ping verifica a conexão com o banco
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
