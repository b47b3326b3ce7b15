// Package registry implements the connection registry: the component that turns a
// ConnectionConfig into a live, reusable *sqlx.DB pool (optionally behind an SSH tunnel),
// keeps it addressable by connection id, and tears it down again.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/logging"
	"github.com/sqlmate/dbcore/tunnel"
)

// record is everything the Registry keeps for one live connection.
type record struct {
	config   ConnectionConfig
	password string
	pool     *sqlx.DB
	tunnel   *tunnel.Tunnel
}

// Registry is the process-wide table of live database connections. The host application is
// expected to keep a single Registry for its lifetime; callers address connections by the
// uuid.UUID assigned to their ConnectionConfig.
//
// All methods are safe for concurrent use.
type Registry struct {
	logging *logging.Logging

	mu      sync.RWMutex
	records map[uuid.UUID]*record
}

// New creates an empty Registry. logger is used to build a named child Logger ("registry",
// "tunnel") for every connection's pool and tunnel.
func New(logging *logging.Logging) *Registry {
	return &Registry{
		logging: logging,
		records: make(map[uuid.UUID]*record),
	}
}

// Connect validates cfg, establishes an SSH tunnel if cfg.SSH.Enabled, opens the pool, and
// pings it once before the connection is considered live. On any failure, anything already
// opened (tunnel, pool) is torn down before returning.
func (r *Registry) Connect(ctx context.Context, cfg ConnectionConfig, password string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.records[cfg.ID]; exists {
		r.mu.Unlock()
		return errors.Errorf("connection %s is already connected", cfg.ID)
	}
	r.mu.Unlock()

	var t *tunnel.Tunnel
	var tunnelAddr string
	if cfg.SSH.Enabled {
		var err error
		t, err = tunnel.Open(ctx, tunnel.Config{
			Host:           cfg.SSH.Host,
			Port:           cfg.SSH.Port,
			Username:       cfg.SSH.Username,
			AuthMethod:     tunnel.AuthMethod(cfg.SSH.AuthMethod),
			Password:       cfg.SSH.Password,
			PrivateKeyPath: cfg.SSH.PrivateKeyPath,
			RemoteHost:     cfg.Host,
			RemotePort:     portOrDefault(cfg),
		}, r.logging.GetChildLogger("tunnel"))
		if err != nil {
			return errors.Wrap(ErrTunnelSetup, err.Error())
		}
		tunnelAddr = t.LocalAddr()
	}

	pool, err := openPool(cfg, password, tunnelAddr, r.logging.GetChildLogger("registry"))
	if err != nil {
		if t != nil {
			t.Close()
		}
		return errors.Wrap(ErrConnection, err.Error())
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		if t != nil {
			t.Close()
		}
		return errors.Wrap(ErrConnection, err.Error())
	}

	r.mu.Lock()
	r.records[cfg.ID] = &record{config: cfg, password: password, pool: pool, tunnel: t}
	r.mu.Unlock()

	return nil
}

// TestConnection performs the same work as Connect but never stores the result; it always
// tears down the pool and tunnel it opened, win or lose. Used for a "test before saving"
// round trip that never touches the live registry.
func (r *Registry) TestConnection(ctx context.Context, cfg ConnectionConfig, password string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var t *tunnel.Tunnel
	var tunnelAddr string
	if cfg.SSH.Enabled {
		var err error
		t, err = tunnel.Open(ctx, tunnel.Config{
			Host:           cfg.SSH.Host,
			Port:           cfg.SSH.Port,
			Username:       cfg.SSH.Username,
			AuthMethod:     tunnel.AuthMethod(cfg.SSH.AuthMethod),
			Password:       cfg.SSH.Password,
			PrivateKeyPath: cfg.SSH.PrivateKeyPath,
			RemoteHost:     cfg.Host,
			RemotePort:     portOrDefault(cfg),
		}, r.logging.GetChildLogger("tunnel"))
		if err != nil {
			return errors.Wrap(ErrTunnelSetup, err.Error())
		}
		defer t.Close()
		tunnelAddr = t.LocalAddr()
	}

	pool, err := openPool(cfg, password, tunnelAddr, r.logging.GetChildLogger("registry"))
	if err != nil {
		return errors.Wrap(ErrConnection, err.Error())
	}
	defer pool.Close()

	if err := pool.PingContext(ctx); err != nil {
		return errors.Wrap(ErrConnection, err.Error())
	}

	return nil
}

// SwitchDatabase rebuilds id's pool against newDatabase, leaving the SSH tunnel (if any) in
// place, and replaces the stored pool only once the new one pings successfully. Any query
// in flight against the old pool when this is called is allowed to finish against it; only
// subsequent calls to ResolvePool observe the new database. SQLite rejects this outright, as
// a SQLite "database" is a file, not a namespace a single file connection can switch.
func (r *Registry) SwitchDatabase(ctx context.Context, id uuid.UUID, newDatabase string) error {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	if rec.config.Dialect == SQLite {
		return ErrSwitchDatabaseUnsupported
	}

	newCfg := rec.config.withDatabase(newDatabase)

	var tunnelAddr string
	if rec.tunnel != nil {
		tunnelAddr = rec.tunnel.LocalAddr()
	}

	newPool, err := openPool(newCfg, rec.password, tunnelAddr, r.logging.GetChildLogger("registry"))
	if err != nil {
		return errors.Wrap(ErrConnection, err.Error())
	}
	if err := newPool.PingContext(ctx); err != nil {
		newPool.Close()
		return errors.Wrap(ErrConnection, err.Error())
	}

	r.mu.Lock()
	oldPool := rec.pool
	rec.pool = newPool
	rec.config = newCfg
	r.mu.Unlock()

	oldPool.Close()

	return nil
}

// Disconnect tears down id's pool and tunnel (in that order) and removes its record. It is
// idempotent: disconnecting an id with no record is not an error.
func (r *Registry) Disconnect(id uuid.UUID) error {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	var poolErr error
	if rec.pool != nil {
		poolErr = rec.pool.Close()
	}
	if rec.tunnel != nil {
		rec.tunnel.Close()
	}

	return poolErr
}

// ResolvePool returns id's pool and dialect for the query executor. The returned *sqlx.DB
// remains valid until the next successful SwitchDatabase or Disconnect for id.
func (r *Registry) ResolvePool(id uuid.UUID) (*sqlx.DB, Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, "", ErrNotConnected
	}
	return rec.pool, rec.config.Dialect, nil
}

// Config returns a copy of id's current ConnectionConfig (reflecting the database named by
// the most recent successful SwitchDatabase, if any).
func (r *Registry) Config(id uuid.UUID) (ConnectionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return ConnectionConfig{}, ErrNotConnected
	}
	return rec.config, nil
}

// IsConnected reports whether id currently has a live record.
func (r *Registry) IsConnected(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[id]
	return ok
}

func portOrDefault(cfg ConnectionConfig) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return cfg.Dialect.DefaultPort()
}
