package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CAFE_DB_DRIVER", "")
	t.Setenv("CAFE_BCRYPT_COST", "not-a-number")
	t.Setenv("CAFE_CONNECT_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAFE_DB_DRIVER", "sqlite")
	t.Setenv("CAFE_DB_HOST", "db.internal")
	t.Setenv("CAFE_BCRYPT_COST", "12")
	t.Setenv("CAFE_CONNECT_TIMEOUT", "3s")
	t.Setenv("CAFE_SEED_MANAGER_LOGIN", "boss")

	cfg := Load()
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "boss", cfg.SeedManagerLogin)
}

func TestPostgresDSNQuotesValues(t *testing.T) {
	cfg := &Config{
		Driver:         DriverPostgres,
		Host:           "localhost",
		Port:           "5432",
		User:           "o'brien",
		Password:       `p w\d`,
		DBName:         "cafe",
		SSLMode:        "disable",
		ConnectTimeout: 5 * time.Second,
	}
	assert.Equal(t,
		`host='localhost' port='5432' user='o\'brien' password='p w\\d' dbname='cafe' sslmode='disable' connect_timeout=5`,
		cfg.DSN())
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{Driver: "oracle", ConnectTimeout: time.Second}
	_, err := OpenStore(context.Background(), cfg, logrus.New())
	assert.Error(t, err)
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &Config{
		Driver:         DriverSQLite,
		LogLevel:       "debug",
		DBName:         filepath.Join(t.TempDir(), "cafe.db"),
		ConnectTimeout: time.Second,
		LogFile:        filepath.Join(t.TempDir(), "cafe.log"),
	}
	log, closer, err := cfg.NewLogger()
	require.NoError(t, err)
	defer closer.Close()

	store, err := OpenStore(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
