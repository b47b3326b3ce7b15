package registry

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/config"
)

// Dialect identifies which of the three supported engines a ConnectionConfig targets.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// DefaultPort returns the dialect's standard port, used when ConnectionConfig.Port is unset.
// SQLite has no network port and returns 0.
func (d Dialect) DefaultPort() int {
	switch d {
	case Postgres:
		return 5432
	case MySQL:
		return 3306
	default:
		return 0
	}
}

// SSHAuthMethod selects how the SSH tunnel authenticates to the jump host.
type SSHAuthMethod string

const (
	SSHAuthPassword SSHAuthMethod = "password"
	SSHAuthKey      SSHAuthMethod = "key"
)

// SSHConfig describes the jump host used to reach a database that isn't directly reachable
// from the client. When Enabled, ConnectionConfig.Host/Port refer to the database address as
// seen *from the SSH host*, not from the client.
type SSHConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string

	AuthMethod SSHAuthMethod

	// Password is used when AuthMethod is SSHAuthPassword.
	Password string

	// PrivateKeyPath is used when AuthMethod is SSHAuthKey. An absolute path is used unchanged,
	// a "~/"-prefixed path is expanded against the user's home directory, and a bare filename
	// is resolved under "$HOME/.ssh/".
	PrivateKeyPath string
}

// ConnectionConfig is the immutable descriptor the host process hands to the Registry. It is
// retained verbatim for the lifetime of the connection record so that SwitchDatabase can
// rebuild the pool by mutating only a copy's Database field.
type ConnectionConfig struct {
	ID      uuid.UUID
	Name    string
	Dialect Dialect

	Host     string
	Port     int
	Username string
	Database string

	TLS config.TLS
	SSH SSHConfig

	Environment string
	ColorTag    string
}

// Validate checks the invariants placed on ConnectionConfig, independent of any password
// (which is supplied separately and transiently, never persisted in the config).
func (c *ConnectionConfig) Validate() error {
	switch c.Dialect {
	case Postgres, MySQL, SQLite:
	default:
		return errors.Wrapf(ErrConfiguration, "unknown dialect %q", c.Dialect)
	}

	if c.Dialect != SQLite {
		if c.Host == "" {
			return errors.Wrap(ErrConfiguration, "host missing")
		}
		if c.Username == "" {
			return errors.Wrap(ErrConfiguration, "username missing")
		}
	}

	if c.Database == "" {
		return errors.Wrap(ErrConfiguration, "database missing")
	}

	if err := c.TLS.Validate(); err != nil {
		return errors.Wrap(ErrConfiguration, err.Error())
	}

	if c.SSH.Enabled {
		if c.Dialect == SQLite {
			return errors.Wrap(ErrConfiguration, "SSH tunneling is not supported for sqlite")
		}

		if c.SSH.Host == "" || c.SSH.Username == "" {
			return errors.Wrap(ErrConfiguration, "SSH host/username missing")
		}

		switch c.SSH.AuthMethod {
		case SSHAuthPassword:
			if c.SSH.Password == "" {
				return errors.Wrap(ErrConfiguration, "SSH password missing")
			}
		case SSHAuthKey:
			if c.SSH.PrivateKeyPath == "" {
				return errors.Wrap(ErrConfiguration, "SSH private key path missing")
			}
		default:
			return errors.Wrapf(ErrConfiguration, "unsupported SSH auth method %q", c.SSH.AuthMethod)
		}
	}

	return nil
}

// withDatabase returns a shallow copy of c with Database replaced, used by SwitchDatabase to
// rebuild the pool without mutating the stored config until the new pool succeeds.
func (c ConnectionConfig) withDatabase(name string) ConnectionConfig {
	c.Database = name
	return c
}
