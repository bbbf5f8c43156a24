package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func vectorTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		t.Skipf("Skipping integration test: pgvector extension unavailable: %v", err)
	}
	return db
}

func vectorLiteral(dim int) string {
	vals := make([]string, dim)
	for i := range vals {
		vals[i] = "0"
	}
	return "[" + strings.Join(vals, ",") + "]"
}

func TestEnsureVectorDimension(t *testing.T) {
	db := vectorTestDB(t)

	const table = "vector_dim_test_tbl"
	require.NoError(t, db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)).Error)
	require.NoError(t, db.Exec(fmt.Sprintf(`CREATE TABLE %s (id serial PRIMARY KEY, embedding vector)`, table)).Error)
	defer db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table))

	// Dimensionless column reports 0 and gets typed on first run.
	dim, err := VectorDimension(db, table, "embedding")
	require.NoError(t, err)
	assert.Equal(t, 0, dim)

	changed, err := EnsureVectorDimension(db, table, "embedding", 768)
	require.NoError(t, err)
	assert.True(t, changed)

	dim, err = VectorDimension(db, table, "embedding")
	require.NoError(t, err)
	assert.Equal(t, 768, dim)

	// Same dimension again is a no-op.
	changed, err = EnsureVectorDimension(db, table, "embedding", 768)
	require.NoError(t, err)
	assert.False(t, changed)

	// A dimension change keeps the rows but clears their stale vectors.
	require.NoError(t, db.Exec(
		fmt.Sprintf(`INSERT INTO %s (embedding) VALUES (?::vector)`, table),
		vectorLiteral(768),
	).Error)
	changed, err = EnsureVectorDimension(db, table, "embedding", 1536)
	require.NoError(t, err)
	assert.True(t, changed)

	dim, err = VectorDimension(db, table, "embedding")
	require.NoError(t, err)
	assert.Equal(t, 1536, dim)

	var nulls int64
	require.NoError(t, db.Raw(fmt.Sprintf(`SELECT count(*) FROM %s WHERE embedding IS NULL`, table)).Scan(&nulls).Error)
	assert.Equal(t, int64(1), nulls)

	// A missing table reports 0 instead of erroring.
	dim, err = VectorDimension(db, "vector_dim_missing_tbl", "embedding")
	require.NoError(t, err)
	assert.Equal(t, 0, dim)
}
