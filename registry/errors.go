package registry

import "github.com/pkg/errors"

// Sentinel errors for the taxonomy a caller is expected to test with errors.Is/errors.As:
// missing/invalid configuration, SSH tunnel setup, pool construction or liveness check
// failure, and "no record for this connection id".
var (
	// ErrConfiguration is returned for a missing required field or an unsupported auth method.
	ErrConfiguration = errors.New("invalid connection configuration")

	// ErrTunnelSetup is returned when the TCP dial, SSH handshake, or authentication to the
	// jump host fails.
	ErrTunnelSetup = errors.New("can't establish SSH tunnel")

	// ErrConnection is returned when pool construction or the liveness ping fails.
	ErrConnection = errors.New("can't connect to database")

	// ErrNotConnected is returned by any operation referencing a connection id that has no
	// live record.
	ErrNotConnected = errors.New("not connected")

	// ErrSwitchDatabaseUnsupported is returned by SwitchDatabase for SQLite connections, which
	// have no notion of multiple databases per file.
	ErrSwitchDatabaseUnsupported = errors.New("switch_database is not supported for sqlite")
)
