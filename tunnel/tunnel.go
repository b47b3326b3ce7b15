// Package tunnel implements the SSH tunnel a ConnectionConfig can route a database
// connection through: dial the jump host, authenticate, bind a local loopback listener, and
// forward every accepted connection to the remote database address over the SSH session.
package tunnel

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/logging"
	"golang.org/x/crypto/ssh"
)

// AuthMethod selects how Open authenticates to the jump host.
type AuthMethod string

const (
	AuthPassword AuthMethod = "password"
	AuthKey      AuthMethod = "key"
)

// Config describes the jump host and the remote address to forward to. Host/Username and
// the chosen auth method's fields are required; a zero Port or RemotePort is replaced by 22.
// RemoteHost/RemotePort identify the database as seen from the jump host, not from the caller.
type Config struct {
	Host     string
	Port     int
	Username string

	AuthMethod     AuthMethod
	Password       string
	PrivateKeyPath string

	RemoteHost string
	RemotePort int
}

const dialTimeout = 10 * time.Second

// Tunnel is a live SSH tunnel: an SSH client connected to the jump host, and a local
// loopback listener whose accepted connections are forwarded over that client to
// Config.RemoteHost:RemotePort.
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
	logger   *logging.Logger

	closed chan struct{}
}

// Open dials cfg.Host, authenticates, and starts forwarding. It returns once the local
// listener is bound and ready to accept; forwarding runs in background goroutines until
// Close is called.
func Open(ctx context.Context, cfg Config, logger *logging.Logger) (*Tunnel, error) {
	authMethods, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "building SSH auth methods")
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	jumpAddr := net.JoinHostPort(cfg.Host, portString(cfg.Port))

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", jumpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "can't reach SSH host %s", jumpAddr)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, jumpAddr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "SSH handshake failed")
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "can't bind local tunnel listener")
	}

	t := &Tunnel{
		client:   client,
		listener: listener,
		logger:   logger,
		closed:   make(chan struct{}),
	}

	remoteAddr := net.JoinHostPort(cfg.RemoteHost, portString(cfg.RemotePort))
	go t.acceptLoop(remoteAddr)

	return t, nil
}

// LocalAddr returns the "host:port" a database driver should dial instead of the real
// remote address, now that the tunnel is forwarding to it.
func (t *Tunnel) LocalAddr() string {
	return t.listener.Addr().String()
}

// Close stops accepting new local connections and closes the SSH session. In-flight
// forwarded connections are closed as a side effect.
func (t *Tunnel) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
		close(t.closed)
	}

	listenErr := t.listener.Close()
	clientErr := t.client.Close()
	if listenErr != nil {
		return listenErr
	}
	return clientErr
}

func (t *Tunnel) acceptLoop(remoteAddr string) {
	for {
		local, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
				if t.logger != nil {
					t.logger.Warnw("Tunnel listener stopped accepting connections", "error", err)
				}
				return
			}
		}

		go t.forward(local, remoteAddr)
	}
}

func (t *Tunnel) forward(local net.Conn, remoteAddr string) {
	remote, err := t.client.Dial("tcp", remoteAddr)
	if err != nil {
		if t.logger != nil {
			t.logger.Warnw("Can't dial remote address through SSH tunnel", "remote", remoteAddr, "error", err)
		}
		local.Close()
		return
	}

	done := make(chan struct{}, 2)
	go copyAndSignal(local, remote, done)
	go copyAndSignal(remote, local, done)
	<-done

	local.Close()
	remote.Close()
}

func copyAndSignal(dst net.Conn, src net.Conn, done chan<- struct{}) {
	_, _ = io.Copy(dst, src)
	done <- struct{}{}
}

func buildAuthMethods(cfg Config) ([]ssh.AuthMethod, error) {
	switch cfg.AuthMethod {
	case AuthPassword:
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	case AuthKey:
		path, err := expandPath(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}

		keyPem, err := os.ReadFile(path) // #nosec G304 -- user-specified key path
		if err != nil {
			return nil, errors.Wrap(err, "can't read private key file")
		}

		signer, err := ssh.ParsePrivateKey(keyPem)
		if err != nil {
			return nil, errors.Wrap(err, "can't parse private key")
		}

		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	default:
		return nil, errors.Errorf("unsupported SSH auth method %q", cfg.AuthMethod)
	}
}

// expandPath resolves "~/"-prefixed paths against the user's home directory, and a bare
// filename (no path separator) under "$HOME/.ssh/".
func expandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty private key path")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "can't resolve home directory")
		}
		return filepath.Join(home, path[2:]), nil
	}

	if !strings.Contains(path, string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "can't resolve home directory")
		}
		return filepath.Join(home, ".ssh", path), nil
	}

	return path, nil
}

func portString(port int) string {
	if port == 0 {
		port = 22
	}
	return strconv.Itoa(port)
}
