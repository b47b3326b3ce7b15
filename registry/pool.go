package registry

import (
	"database/sql"
	"fmt"
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/logging"
)

// maxOpenConnsFor returns the pool size: 5 physical connections for Postgres/MySQL, 1 for
// SQLite (a single file cannot usefully serve concurrent writers).
func maxOpenConnsFor(dialect Dialect) int {
	if dialect == SQLite {
		return 1
	}
	return 5
}

// acquireTimeout bounds how long opening a new physical connection may take.
const acquireTimeout = 5 * time.Second

// openPool builds a *sqlx.DB for cfg, substituting (host, port) with a tunnel's local
// endpoint when tunnelAddr is non-empty (the Registry does this when cfg.SSH.Enabled).
func openPool(cfg ConnectionConfig, password string, tunnelAddr string, logger *logging.Logger) (*sqlx.DB, error) {
	host, port := cfg.Host, cfg.Port
	if port == 0 {
		port = cfg.Dialect.DefaultPort()
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	if tunnelAddr != "" {
		addr = tunnelAddr
	}

	switch cfg.Dialect {
	case Postgres:
		return openPostgres(cfg, password, addr, logger)
	case MySQL:
		return openMySQL(cfg, password, addr, logger)
	case SQLite:
		return openSQLite(cfg)
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown dialect %q", cfg.Dialect)
	}
}

func openMySQL(cfg ConnectionConfig, password, addr string, logger *logging.Logger) (*sqlx.DB, error) {
	mycfg := gomysql.NewConfig()
	mycfg.User = cfg.Username
	mycfg.Passwd = password
	mycfg.Net = "tcp"
	mycfg.Addr = addr
	mycfg.DBName = cfg.Database
	mycfg.Timeout = acquireTimeout
	mycfg.ParseTime = true

	if cfg.TLS.Enable {
		tlsConfig, err := cfg.TLS.MakeConfig(cfg.Host)
		if err != nil {
			return nil, errors.Wrap(err, "building TLS config")
		}

		tlsConfigName := "dbcore-" + cfg.ID.String()
		if err := gomysql.RegisterTLSConfig(tlsConfigName, tlsConfig); err != nil {
			return nil, errors.Wrap(err, "registering TLS config")
		}
		mycfg.TLSConfig = tlsConfigName
	}

	connector, err := gomysql.NewConnector(mycfg)
	if err != nil {
		return nil, errors.Wrap(err, "building mysql connector")
	}

	db := sql.OpenDB(newRetryConnector(connector, logger))
	db.SetMaxOpenConns(maxOpenConnsFor(MySQL))
	db.SetMaxIdleConns(maxOpenConnsFor(MySQL))

	return sqlx.NewDb(db, "mysql"), nil
}

func openPostgres(cfg ConnectionConfig, password, addr string, logger *logging.Logger) (*sqlx.DB, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid address")
	}

	sslmode := "disable"
	if cfg.TLS.Enable {
		switch cfg.TLS.Mode {
		case "", "verify-full":
			sslmode = "verify-full"
		case "verify-ca":
			sslmode = "verify-ca"
		case "require":
			sslmode = "require"
		case "prefer":
			sslmode = "prefer"
		}
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		host, port, cfg.Username, password, cfg.Database, sslmode, int(acquireTimeout.Seconds()),
	)
	if cfg.TLS.Ca != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", cfg.TLS.Ca)
	}
	if cfg.TLS.Cert != "" {
		dsn += fmt.Sprintf(" sslcert=%s", cfg.TLS.Cert)
	}
	if cfg.TLS.Key != "" {
		dsn += fmt.Sprintf(" sslkey=%s", cfg.TLS.Key)
	}

	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "building postgres connector")
	}

	db := sql.OpenDB(newRetryConnector(connector, logger))
	db.SetMaxOpenConns(maxOpenConnsFor(Postgres))
	db.SetMaxIdleConns(maxOpenConnsFor(Postgres))

	return sqlx.NewDb(db, "postgres"), nil
}

func openSQLite(cfg ConnectionConfig) (*sqlx.DB, error) {
	if cfg.SSH.Enabled {
		return nil, errors.Wrap(ErrConfiguration, "SSH tunneling is not supported for sqlite")
	}

	db, err := sqlx.Open("sqlite", cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite database")
	}
	db.SetMaxOpenConns(maxOpenConnsFor(SQLite))

	return db, nil
}
