package iocache

import (
	"testing"
	"time"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE x = ? AND y = ?"
	assert.Equal(t, query, rebind(query, schema.SQLiteBackend))
	assert.Equal(t, query, rebind(query, schema.MySQLBackend))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", rebind(query, schema.PostgreSQLBackend))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "triad_reports", quoteTableName("triad_reports", schema.SQLiteBackend))
	assert.Equal(t, "`triad_reports`", quoteTableName("triad_reports", schema.MySQLBackend))
	assert.Equal(t, `"triad_reports"`, quoteTableName("triad_reports", schema.PostgreSQLBackend))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName(executionsTable))
	assert.Error(t, validateTableName("x; DROP TABLE y"))
	assert.Error(t, validateTableName(""))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	assert.Equal(t, "/tmp/a.db?"+sqliteBusyTimeout, sqliteDSN("/tmp/a.db"))
	assert.Equal(t, "file:a.db?mode=ro", sqliteDSN("file:a.db?mode=ro"))
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("user:pass@tcp(localhost:3306)/triad", false)
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.NotContains(t, dsn, "multiStatements")

	dsn, err = mysqlDSN("user:pass@tcp(localhost:3306)/triad", true)
	require.NoError(t, err)
	assert.Contains(t, dsn, "multiStatements=true")

	_, err = mysqlDSN("not a dsn", false)
	assert.Error(t, err)
}

func TestTimeColumn(t *testing.T) {
	want := time.Date(2026, 2, 3, 4, 5, 6, 789, time.UTC)
	stored := formatTime(want, schema.SQLiteBackend).(string)
	assert.Len(t, stored, len(sqliteTimeLayout))

	tests := []struct {
		name string
		src  any
		want time.Time
	}{
		{"sqlite text", stored, want},
		{"bytes", []byte(stored), want},
		{"native", want.In(time.FixedZone("X", 3600)), want},
		{"rfc3339", "2026-02-03T04:05:06.000000789Z", want},
		{"mysql text", "2026-02-03 04:05:06", want.Truncate(time.Second)},
		{"null", nil, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tc timeColumn
			require.NoError(t, tc.Scan(tt.src))
			assert.True(t, tt.want.Equal(tc.Time), "got %s", tc.Time)
		})
	}

	var tc timeColumn
	assert.Error(t, tc.Scan(42))
	assert.Error(t, tc.Scan("yesterday"))
}

func TestStoredTimesSortLexicographically(t *testing.T) {
	early := formatTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), schema.SQLiteBackend).(string)
	late := formatTime(time.Date(2026, 1, 1, 0, 0, 0, 500, time.UTC), schema.SQLiteBackend).(string)
	assert.Less(t, early, late)
}

func TestRangeAndLimitClause(t *testing.T) {
	where, args := rangeClause("ts", schema.TimeRange{}, schema.SQLiteBackend)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = rangeClause("ts", schema.TimeRange{Start: baseTime, End: baseTime.Add(time.Hour)}, schema.PostgreSQLBackend)
	assert.Equal(t, " WHERE ts >= ? AND ts <= ?", where)
	assert.Len(t, args, 2)

	assert.Empty(t, limitClause(0))
	assert.Equal(t, " LIMIT 5", limitClause(5))
}
