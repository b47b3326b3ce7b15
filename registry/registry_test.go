package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sqlmate/dbcore/logging"
	"github.com/stretchr/testify/require"
)

func newTestLogging(t *testing.T) *logging.Logging {
	t.Helper()
	l, err := logging.NewLogging("registry-test", logging.Config{Output: logging.CONSOLE})
	require.NoError(t, err)
	return l
}

func TestRegistryConnectAndDisconnect(t *testing.T) {
	r := New(newTestLogging(t))
	ctx := context.Background()

	cfg := ConnectionConfig{
		ID:       uuid.New(),
		Dialect:  SQLite,
		Database: "file::memory:?cache=shared",
	}

	require.NoError(t, r.Connect(ctx, cfg, ""))
	require.True(t, r.IsConnected(cfg.ID))

	pool, dialect, err := r.ResolvePool(cfg.ID)
	require.NoError(t, err)
	require.Equal(t, SQLite, dialect)
	require.NotNil(t, pool)

	require.NoError(t, r.Disconnect(cfg.ID))
	require.False(t, r.IsConnected(cfg.ID))

	// idempotent
	require.NoError(t, r.Disconnect(cfg.ID))
}

func TestRegistryConnectInvalidConfig(t *testing.T) {
	r := New(newTestLogging(t))

	err := r.Connect(context.Background(), ConnectionConfig{ID: uuid.New(), Dialect: "oracle"}, "")
	require.Error(t, err)
}

func TestRegistryConnectDuplicate(t *testing.T) {
	r := New(newTestLogging(t))
	ctx := context.Background()

	cfg := ConnectionConfig{ID: uuid.New(), Dialect: SQLite, Database: "file::memory:?cache=shared"}
	require.NoError(t, r.Connect(ctx, cfg, ""))
	defer r.Disconnect(cfg.ID)

	require.Error(t, r.Connect(ctx, cfg, ""))
}

func TestRegistrySwitchDatabaseRejectsSQLite(t *testing.T) {
	r := New(newTestLogging(t))
	ctx := context.Background()

	cfg := ConnectionConfig{ID: uuid.New(), Dialect: SQLite, Database: "file::memory:?cache=shared"}
	require.NoError(t, r.Connect(ctx, cfg, ""))
	defer r.Disconnect(cfg.ID)

	err := r.SwitchDatabase(ctx, cfg.ID, "other")
	require.ErrorIs(t, err, ErrSwitchDatabaseUnsupported)
}

func TestRegistryResolvePoolNotConnected(t *testing.T) {
	r := New(newTestLogging(t))
	_, _, err := r.ResolvePool(uuid.New())
	require.ErrorIs(t, err, ErrNotConnected)
}
