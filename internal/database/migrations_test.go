package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		for _, tableName := range []string{"tags", "positions"} {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("positions table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":            "uuid",
			"symbol":        "character varying",
			"quantity":      "numeric",
			"cost_price":    "numeric",
			"tag_ids":       "ARRAY",
			"is_closed":     "boolean",
			"closing_price": "numeric",
			"created_at":    "timestamp without time zone",
			"updated_at":    "timestamp without time zone",
		}

		rows, err := testDB.GetRawConn().Query(`
			SELECT column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = 'positions'
		`)
		require.NoError(t, err)
		defer rows.Close()

		actual := map[string]string{}
		for rows.Next() {
			var name, dataType string
			require.NoError(t, rows.Scan(&name, &dataType))
			actual[name] = dataType
		}
		require.NoError(t, rows.Err())

		for column, dataType := range expectedColumns {
			assert.Equal(t, dataType, actual[column], "column %s", column)
		}
	})

	t.Run("tag names are unique", func(t *testing.T) {
		var exists bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_indexes
				WHERE tablename = 'tags' AND indexname = 'idx_tags_name'
			)
		`).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, testDB.Migrate())
	})
}
