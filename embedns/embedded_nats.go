package embedns

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

type TLSConfig struct {
	CertFile   string
	KeyFile    string
	CACertFile string
}

// EmbeddedNATSConfig represents the configuration for an embedded NATS server
// used as the namespace event bus.
type EmbeddedNATSConfig struct {
	NodeName string
	// Host to listen on (default: 127.0.0.1).
	Host string
	// Port to listen on (default: random port).
	Port int
	// DontListen disables the network listener so that the server is only
	// reachable in process.
	DontListen bool
	TLS        *TLSConfig
}

func NewEmbeddedNATS(cfg EmbeddedNATSConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName: cfg.NodeName,
		Host:       cfg.Host,
		Port:       cfg.Port,
		DontListen: cfg.DontListen,
		NoSigs:     true,
		NoLog:      true,
	}
	if opts.Host == "" {
		opts.Host = server.DEFAULT_HOST
	}
	if opts.Port == 0 {
		opts.Port = server.RANDOM_PORT
	}

	if cfg.TLS != nil {
		tlsConfig, err := configureTLS(cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tlsConfig
		opts.TLS = true
	}

	opts.MaxPayload = 256 * 1024      // 256KB max message size
	opts.MaxPending = 5 * 1024 * 1024 // 5MB max pending bytes per connection
	opts.WriteDeadline = 10 * time.Second

	return server.NewServer(opts)
}

// StartEmbeddedNATS creates and starts an embedded server, waiting up to
// readyTimeout for it to accept connections.
func StartEmbeddedNATS(cfg EmbeddedNATSConfig, readyTimeout time.Duration) (*server.Server, error) {
	srv, err := NewEmbeddedNATS(cfg)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats: %w", err)
	}
	srv.Start()
	if !srv.ReadyForConnections(readyTimeout) {
		srv.Shutdown()
		return nil, errors.New("embedded nats not ready for connections")
	}
	return srv, nil
}

func configureTLS(cfg *TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load cert and key: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to append ca cert")
		}

		tlsConfig.ClientCAs = caCertPool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}
