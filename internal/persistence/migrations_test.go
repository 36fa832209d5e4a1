package persistence

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_sla_schema.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestSchemaKeepsPolicyColumns(t *testing.T) {
	content, err := fs.ReadFile(migrationFiles, "migrations/0001_sla_schema.sql")
	require.NoError(t, err)
	for _, column := range []string{"setor_id", "mode", "p0_hours", "p1_hours", "p2_hours", "p3_hours", "allow_superadmin_override"} {
		assert.True(t, strings.Contains(string(content), column), column)
	}
}

func TestRunMigrationsWithoutPoolIsNoop(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}
