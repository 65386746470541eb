package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriverURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/sf?sslmode=disable", driverURL("postgres://u:p@db:5432/sf?sslmode=disable"))
	require.Equal(t, "pgx5://db/sf", driverURL("postgresql://db/sf"))
	require.Equal(t, "pgx5://db/sf", driverURL("pgx5://db/sf"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(files, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(files, "*.down.sql")
	require.NoError(t, err)
	require.Len(t, ups, 2)
	require.Len(t, downs, len(ups))
}
