package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/lib/pq"

	"github.com/cleberrangel/brickrate-api/internal/logger"
)

// lockID é a chave do pg_advisory_lock que serializa migrators concorrentes
// (várias réplicas da API subindo ao mesmo tempo)
const lockID = 7240311

// Migration representa uma migração de banco de dados
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Status descreve uma migração e se ela já foi aplicada
type Status struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// Migrator gerencia as migrações do banco de dados
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator cria um novo migrator
func NewMigrator(db *sql.DB) *Migrator {
	migrations := getAllMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return &Migrator{db: db, migrations: migrations}
}

// Run aplica as migrações pendentes, cada uma em sua transação
func (m *Migrator) Run(ctx context.Context) error {
	log := logger.Get(ctx)

	return m.withLock(ctx, func(conn *sql.Conn) error {
		current, err := currentVersion(ctx, conn)
		if err != nil {
			return err
		}

		pending := m.pending(current)
		log.Info().Int("current_version", current).Int("pending", len(pending)).Msg("Verificando migrações")

		for _, mig := range pending {
			if err := apply(ctx, conn, mig.Version, mig.Up,
				"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
				return fmt.Errorf("erro ao executar migração %d (%s): %w", mig.Version, mig.Name, err)
			}
			log.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("Migração aplicada")
		}
		return nil
	})
}

// Rollback desfaz a última migração aplicada; sem migrações é no-op
func (m *Migrator) Rollback(ctx context.Context) error {
	return m.withLock(ctx, func(conn *sql.Conn) error {
		current, err := currentVersion(ctx, conn)
		if err != nil || current == 0 {
			return err
		}

		mig, ok := m.find(current)
		if !ok {
			return fmt.Errorf("migração %d não encontrada", current)
		}
		if err := apply(ctx, conn, mig.Version, mig.Down,
			"DELETE FROM schema_migrations WHERE version = $1", mig.Version); err != nil {
			return fmt.Errorf("erro ao desfazer migração %d (%s): %w", mig.Version, mig.Name, err)
		}

		logger.Get(ctx).Info().Int("version", mig.Version).Str("name", mig.Name).Msg("Migração desfeita")
		return nil
	})
}

// Version retorna a versão aplicada mais recente
func (m *Migrator) Version(ctx context.Context) (int, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if err := createMigrationsTable(ctx, conn); err != nil {
		return 0, err
	}
	return currentVersion(ctx, conn)
}

// Status lista todas as migrações conhecidas com o estado de cada uma
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	current, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	return m.status(current), nil
}

func (m *Migrator) status(current int) []Status {
	out := make([]Status, 0, len(m.migrations))
	for _, mig := range m.migrations {
		out = append(out, Status{Version: mig.Version, Name: mig.Name, Applied: mig.Version <= current})
	}
	return out
}

// pending retorna as migrações acima de current, em ordem
func (m *Migrator) pending(current int) []Migration {
	var out []Migration
	for _, mig := range m.migrations {
		if mig.Version > current {
			out = append(out, mig)
		}
	}
	return out
}

func (m *Migrator) find(version int) (Migration, bool) {
	for _, mig := range m.migrations {
		if mig.Version == version {
			return mig, true
		}
	}
	return Migration{}, false
}

// withLock executa fn numa conexão dedicada segurando o advisory lock
func (m *Migrator) withLock(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("erro ao obter conexão: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("erro ao obter lock de migração: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			logger.Get(ctx).Warn().Err(err).Msg("Erro ao liberar lock de migração")
		}
	}()

	if err := createMigrationsTable(ctx, conn); err != nil {
		return err
	}
	return fn(conn)
}

func createMigrationsTable(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL DEFAULT '',
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("erro ao criar tabela de migrações: %w", err)
	}
	return nil
}

func currentVersion(ctx context.Context, conn *sql.Conn) (int, error) {
	var version int
	if err := conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("erro ao obter versão atual: %w", err)
	}
	return version, nil
}

// apply roda o DDL e o registro em schema_migrations na mesma transação
func apply(ctx context.Context, conn *sql.Conn, version int, ddl, record string, args ...interface{}) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("registrar versão %d: %w", version, err)
	}
	return tx.Commit()
}
