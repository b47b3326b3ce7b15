package config

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"github.com/pkg/errors"
	"os"
)

// Mode refines Enable for database connections, which - unlike a typical TLS client - may
// need to run without transport encryption at all (Disable), opportunistically (Prefer), or
// with varying degrees of server identity verification (Require/VerifyCa/VerifyFull), mirroring
// libpq's sslmode and the equivalent MySQL driver knob.
type Mode string

const (
	ModeDisable    Mode = "disable"
	ModePrefer     Mode = "prefer"
	ModeRequire    Mode = "require"
	ModeVerifyCa   Mode = "verify-ca"
	ModeVerifyFull Mode = "verify-full"
)

// TLS represents configuration for a TLS client.
// It provides options to enable TLS, specify certificate and key files,
// CA certificate, and whether to skip verification of the server's certificate chain and host name.
// Use the [TLS.MakeConfig] method to assemble a [*tls.Config] from the TLS struct.
//
// Example usage:
//
//	func main() {
//		tlsConfig := &config.TLS{
//			Enable:   true,
//			Cert:     "path/to/cert.pem",
//			Key:      "path/to/key.pem",
//			Ca:       "path/to/ca.pem",
//			Insecure: false,
//		}
//
//		cfg, err := tlsConfig.MakeConfig("example.com")
//		if err != nil {
//			log.Fatalf("error creating TLS config: %v", err)
//		}
//
//		// ...
//	}
type TLS struct {
	// Enable indicates whether TLS is enabled.
	Enable bool `yaml:"tls" env:"TLS"`

	// Mode refines how the server's certificate is verified once TLS is enabled. MakeConfig
	// treats empty as ModeVerifyFull if Enable is set, for backwards compatibility with TLS's
	// original Enable-only boolean semantics; Validate does not require a CA for an empty Mode.
	Mode Mode `yaml:"tls_mode" env:"TLS_MODE"`

	// Cert is either the path to the TLS certificate file or a raw PEM-encoded string representing it.
	// If provided, Key must also be specified.
	Cert string `yaml:"cert" env:"CERT"`

	// Key is either the path to the TLS key file or a raw PEM-encoded string representing it.
	// If specified, Cert must also be provided.
	Key string `yaml:"key" env:"KEY,unset"`

	// Ca is either the path to the CA certificate file or a raw PEM-encoded string representing it.
	Ca string `yaml:"ca" env:"CA"`

	// Insecure indicates whether to skip verification of the server's certificate chain and host name.
	// If true, any certificate presented by the server and any host name in that certificate is accepted.
	// In this mode, TLS is susceptible to machine-in-the-middle attacks unless custom verification is used.
	//
	// Deprecated: set Mode to ModeRequire instead; Insecure is kept for configs predating Mode.
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// Validate checks that Ca is present whenever Mode demands certificate verification.
func (t *TLS) Validate() error {
	if !t.Enable {
		return nil
	}

	switch t.Mode {
	case ModeVerifyCa, ModeVerifyFull:
		if t.Ca == "" {
			return errors.Errorf("TLS mode %q requires a CA certificate", t.Mode)
		}
	}

	return nil
}

// loadPemOrFile either returns a PEM from within the string or treats it as a file, returning its content.
func loadPemOrFile(pemOrFile string) ([]byte, error) {
	block, _ := pem.Decode([]byte(pemOrFile))
	if block != nil {
		return []byte(pemOrFile), nil
	}

	data, err := os.ReadFile(pemOrFile) // #nosec G304 -- inclusion of user-specified file
	if err != nil {
		return nil, err
	}
	return data, nil
}

// MakeConfig assembles a [*tls.Config] from the TLS struct and the provided serverName.
// It returns a configured *tls.Config or an error if there are issues with the provided TLS settings.
// If TLS is not enabled (t.Enable is false), it returns nil without an error.
func (t *TLS) MakeConfig(serverName string) (*tls.Config, error) {
	if !t.Enable {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	hasKeyWithoutCert := t.Key != "" && t.Cert == ""
	hasCertWithoutKey := t.Cert != "" && t.Key == ""
	hasClientCert := t.Cert != "" && t.Key != ""

	if hasKeyWithoutCert {
		return nil, errors.New("private key given, but client certificate missing")
	}
	if hasCertWithoutKey {
		return nil, errors.New("client certificate given, but private key missing")
	}
	if hasClientCert {
		certPem, err := loadPemOrFile(t.Cert)
		if err != nil {
			return nil, errors.Wrap(err, "can't load X.509 client certificate")
		}
		keyPem, err := loadPemOrFile(t.Key)
		if err != nil {
			return nil, errors.Wrap(err, "can't load X.509 private key")
		}

		crt, err := tls.X509KeyPair(certPem, keyPem)
		if err != nil {
			return nil, errors.Wrap(err, "can't parse client certificate and private key into an X.509 key pair")
		}
		tlsConfig.Certificates = []tls.Certificate{crt}
	}

	mode := t.Mode
	if mode == "" {
		mode = ModeVerifyFull
	}

	if t.Insecure || mode == ModeRequire {
		tlsConfig.InsecureSkipVerify = true
	}

	var roots *x509.CertPool
	if t.Ca != "" {
		caPem, err := loadPemOrFile(t.Ca)
		if err != nil {
			return nil, errors.Wrap(err, "can't load X.509 CA certificate")
		}

		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(caPem) {
			return nil, errors.New("can't parse CA file")
		}

		if !tlsConfig.InsecureSkipVerify {
			tlsConfig.RootCAs = roots
		}
	}

	if mode == ModeVerifyCa && roots != nil {
		// Verify the chain against the CA but skip the hostname check performed by the
		// stdlib's default verifier, which ModeVerifyFull leaves in place.
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyPeerCertificate = verifyChainIgnoringHostname(roots)
	}

	tlsConfig.ServerName = serverName

	return tlsConfig, nil
}

// verifyChainIgnoringHostname returns a VerifyPeerCertificate callback that checks the
// presented certificate chains against roots without comparing the leaf's DNS names to
// the configured ServerName, implementing sslmode=verify-ca semantics.
func verifyChainIgnoringHostname(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("no certificate presented by server")
		}

		leaf, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return errors.Wrap(err, "can't parse server certificate")
		}

		intermediates := x509.NewCertPool()
		for _, raw := range rawCerts[1:] {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return errors.Wrap(err, "can't parse intermediate certificate")
			}
			intermediates.AddCert(cert)
		}

		_, err = leaf.Verify(x509.VerifyOptions{Roots: roots, Intermediates: intermediates})
		return err
	}
}
