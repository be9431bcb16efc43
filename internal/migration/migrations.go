package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_kv_store",
			Up: `
				-- Estado persistido (quotes, usuários, sessões), um documento JSON por chave
				CREATE TABLE kv_store (
					key VARCHAR(100) PRIMARY KEY,
					value JSONB NOT NULL,
					created_at TIMESTAMP DEFAULT NOW(),
					updated_at TIMESTAMP DEFAULT NOW()
				);
			`,
			Down: `
				DROP TABLE IF EXISTS kv_store;
			`,
		},
		{
			Version: 2,
			Name:    "add_kv_store_updated_index",
			Up: `
				CREATE INDEX idx_kv_store_updated_at ON kv_store(updated_at);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_kv_store_updated_at;
			`,
		},
		{
			Version: 3,
			Name:    "add_kv_store_key_check",
			Up: `
				ALTER TABLE kv_store ADD CONSTRAINT kv_store_key_not_blank CHECK (btrim(key) <> '');
			`,
			Down: `
				ALTER TABLE kv_store DROP CONSTRAINT IF EXISTS kv_store_key_not_blank;
			`,
		},
	}
}
