package migration

import (
	"strings"
	"testing"
)

func TestMigrationsAreOrdered(t *testing.T) {
	migrations := getAllMigrations()
	if len(migrations) == 0 {
		t.Fatal("expected at least one migration")
	}

	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %q has version %d, want %d", m.Name, m.Version, i+1)
		}
		if strings.TrimSpace(m.Up) == "" || strings.TrimSpace(m.Down) == "" {
			t.Errorf("migration %d must have up and down", m.Version)
		}
		if len(m.Name) > 100 {
			t.Errorf("migration %d name does not fit schema_migrations.name", m.Version)
		}
	}
}

func TestFirstMigrationCreatesKeyValueTable(t *testing.T) {
	up := getAllMigrations()[0].Up
	for _, want := range []string{"CREATE TABLE kv_store", "key VARCHAR(100) PRIMARY KEY", "value JSONB NOT NULL"} {
		if !strings.Contains(up, want) {
			t.Errorf("first migration missing %q", want)
		}
	}
}

func TestPending(t *testing.T) {
	m := NewMigrator(nil)
	total := len(m.migrations)

	tests := []struct {
		current int
		want    int
		first   int
	}{
		{0, total, 1},
		{1, total - 1, 2},
		{total, 0, 0},
		{total + 5, 0, 0},
	}

	for _, tt := range tests {
		got := m.pending(tt.current)
		if len(got) != tt.want {
			t.Errorf("pending(%d) = %d migrations, want %d", tt.current, len(got), tt.want)
			continue
		}
		if tt.want > 0 && got[0].Version != tt.first {
			t.Errorf("pending(%d) starts at %d, want %d", tt.current, got[0].Version, tt.first)
		}
	}
}

func TestStatus(t *testing.T) {
	m := NewMigrator(nil)

	statuses := m.status(2)
	if len(statuses) != len(m.migrations) {
		t.Fatalf("len = %d, want %d", len(statuses), len(m.migrations))
	}
	for _, s := range statuses {
		if s.Applied != (s.Version <= 2) {
			t.Errorf("version %d applied = %v", s.Version, s.Applied)
		}
	}
}

func TestFind(t *testing.T) {
	m := NewMigrator(nil)

	if mig, ok := m.find(1); !ok || mig.Name != "create_kv_store" {
		t.Errorf("find(1) = %+v, %v", mig, ok)
	}
	if _, ok := m.find(99); ok {
		t.Error("find(99) should miss")
	}
}
