package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cloudbook/internal/model"
	"github.com/suteetoe/cloudbook/pkg/config"
	"gorm.io/gorm/logger"
)

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDB(&config.DBConfig{
		Driver:   "sqlite",
		DBName:   "file:" + t.Name() + "?mode=memory&cache=shared",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.True(t, IsSQLite(db))
	require.NoError(t, Ping(context.Background(), db))

	for _, m := range model.All() {
		require.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
	require.True(t, db.Migrator().HasTable("admin"))
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DBConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	require.Len(t, downs, len(ups))
}
