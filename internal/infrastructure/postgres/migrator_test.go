package postgres

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSourceURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"migrations", "file://migrations"},
		{"/srv/ledger/migrations", "file:///srv/ledger/migrations"},
		{"file://migrations", "file://migrations"},
	}

	for _, tt := range tests {
		if got := sourceURL(tt.in); got != tt.want {
			t.Fatalf("sourceURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigratorDownRejectsZeroSteps(t *testing.T) {
	m := NewMigrator("postgres://localhost/ledger", "migrations", zerolog.Nop())
	if err := m.Down(0); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestMigratorMissingSource(t *testing.T) {
	m := NewMigrator("postgres://localhost:1/ledger?sslmode=disable", t.TempDir()+"/missing", zerolog.Nop())
	if err := m.Up(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
