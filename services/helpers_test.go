package services

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"cafe-ordering/config"
	"cafe-ordering/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newTestService returns a service over a fresh sqlite database.
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Driver:         config.DriverSQLite,
		DBName:         filepath.Join(t.TempDir(), "cafe.db"),
		ConnectTimeout: 5 * time.Second,
	}
	store, err := config.OpenStore(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(store, log, append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)...)
}

// seedUser registers login with password "pw" and sets its role.
func seedUser(t *testing.T, s *Service, login string, role models.UserRole) models.Actor {
	t.Helper()
	ctx := context.Background()
	_, err := s.RegisterUser(ctx, login, "pw", "555-0100")
	require.NoError(t, err)
	if role != models.RoleCustomer {
		_, err = s.store.ExecuteMutation(ctx, `UPDATE users SET type = ? WHERE login = ?`, string(role), login)
		require.NoError(t, err)
	}
	return models.Actor{Login: login, Role: role}
}

func seedItem(t *testing.T, s *Service, manager models.Actor, name, itemType string, price float64) {
	t.Helper()
	_, err := s.AddMenuItem(context.Background(), manager, models.MenuItem{ItemName: name, Type: itemType, Price: price})
	require.NoError(t, err)
}
