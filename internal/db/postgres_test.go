package db_test

import (
	"testing"

	"github.com/octopus/bulletin-digest/internal/db"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/octopus?sslmode=disable", "pgx5://u:p@localhost:5432/octopus?sslmode=disable"},
		{"postgresql://localhost/octopus", "pgx5://localhost/octopus"},
		{"pgx5://localhost/octopus", "pgx5://localhost/octopus"},
		{"localhost/octopus", "pgx5://localhost/octopus"},
	}
	for _, tc := range tests {
		if got := db.MigrationURL(tc.in); got != tc.want {
			t.Errorf("MigrationURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
