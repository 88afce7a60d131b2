package sqlbase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/aiflow/pkg/persistence/sqlbase"
)

func TestDialect_Rebind(t *testing.T) {
	t.Parallel()

	query := "SELECT * FROM executions WHERE workflow_id = ? AND status = ? LIMIT ?"

	assert.Equal(t, query, sqlbase.SQLite.Rebind(query))
	assert.Equal(t,
		"SELECT * FROM executions WHERE workflow_id = $1 AND status = $2 LIMIT $3",
		sqlbase.Postgres.Rebind(query))
}

func TestDialect_Time(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 12, 0, 0, 500, time.FixedZone("BRT", -3*3600))

	assert.Equal(t, "2025-03-01T15:00:00.000000500Z", sqlbase.SQLite.Time(at))
	assert.Equal(t, at.UTC(), sqlbase.Postgres.Time(at))
	assert.Nil(t, sqlbase.SQLite.NullTime(nil))
}

func TestTimestamp_Scan(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  any
	}{
		{name: "native", src: want.In(time.FixedZone("X", 3600))},
		{name: "fixed width text", src: "2025-03-01T15:00:00.000000000Z"},
		{name: "rfc3339 bytes", src: []byte("2025-03-01T12:00:00-03:00")},
		{name: "driver text", src: "2025-03-01 15:00:00+00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ts sqlbase.Timestamp

			require.NoError(t, ts.Scan(tt.src))
			assert.True(t, ts.Valid)
			assert.True(t, want.Equal(ts.Time))
		})
	}

	var ts sqlbase.Timestamp

	require.NoError(t, ts.Scan(nil))
	assert.Nil(t, ts.Ptr())
	require.Error(t, ts.Scan("yesterday"))
	require.Error(t, ts.Scan(42))
}
