package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/advisorly/fincopy/internal/config"
	"github.com/advisorly/fincopy/internal/db"
)

func OpenTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "fincopy",
		Password: "fincopy_pass",
		DBName:   "fincopy_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// TestVector builds a deterministic unit-length embedding for index tests.
func TestVector(dim int, seed float32) []float32 {
	vec := make([]float32, dim)
	vec[int(seed)%dim] = 1
	return vec
}
