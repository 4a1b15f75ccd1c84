package app

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/server"
	"github.com/nats-io/nats.go"
	"go.jetify.com/typeid"
	"golang.org/x/sync/errgroup"

	"github.com/coro-sh/catalog/embedns"
	"github.com/coro-sh/catalog/logkey"
	"github.com/coro-sh/catalog/natsutil"
	"github.com/coro-sh/catalog/notif"
)

const embeddedNATSReadyTimeout = 10 * time.Second

// Serve starts srv and blocks until ctx is cancelled or the server fails to
// start.
func Serve(ctx context.Context, srv *server.Server, logger log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	logger.Info("starting server", "address", srv.Address())
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("waiting for server to be healthy")
		if err := srv.WaitHealthy(15, time.Second); err != nil {
			return err
		}
		logger.Info("server healthy")

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			logger.Error("failed to stop server", "error", err)
		}
		logger.Info("server stopped")
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StartEventPublisher dials the configured NATS server, starting an embedded
// one first when configured. The returned func closes the publisher and the
// embedded server.
func StartEventPublisher(logger log.Logger, cfg EventsConfig) (*notif.Publisher, func(), error) {
	var connOpts []natsutil.ConnectOption
	url := cfg.NatsURL
	closeEmbedded := func() {}

	if cfg.Embedded != nil {
		nodeID, err := typeid.WithPrefix("node")
		if err != nil {
			return nil, nil, err
		}

		natsCfg := embedns.EmbeddedNATSConfig{
			NodeName:   nodeID.String(),
			DontListen: cfg.Embedded.HostPort == "",
		}
		if cfg.Embedded.HostPort != "" {
			host, portStr, err := net.SplitHostPort(cfg.Embedded.HostPort)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid embedded nats host/port: %w", err)
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid embedded nats port: %w", err)
			}
			natsCfg.Host = host
			natsCfg.Port = port
		}
		if cfg.Embedded.TLS != nil {
			natsCfg.TLS = &embedns.TLSConfig{
				CertFile:   cfg.Embedded.TLS.CertFile,
				KeyFile:    cfg.Embedded.TLS.KeyFile,
				CACertFile: cfg.Embedded.TLS.CACertFile,
			}
		}

		logger.Info("waiting for embedded nats server to start")
		ns, err := embedns.StartEmbeddedNATS(natsCfg, embeddedNATSReadyTimeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("embedded nats server started", "node", natsCfg.NodeName, "client_url", ns.ClientURL())

		url = ""
		connOpts = append(connOpts, natsutil.WithInProcessServer(ns))
		closeEmbedded = ns.Shutdown
	}

	if cfg.TLS != nil {
		tlsCfg, err := clientTLSConfig(cfg.TLS)
		if err != nil {
			closeEmbedded()
			return nil, nil, err
		}
		connOpts = append(connOpts, natsutil.WithTLS(tlsCfg))
	}

	connOpts = append(connOpts,
		natsutil.WithDisconnectHandler(func(_ *nats.Conn, err error) {
			logger.Error("event publisher disconnected", "error", err)
		}),
		natsutil.WithReconnectHandler(func(_ *nats.Conn) {
			logger.Info("event publisher reconnected")
		}),
		natsutil.WithErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Error("event publisher async error", "error", err, logkey.EventSubject, sub.Subject)
				return
			}
			logger.Error("event publisher async error", "error", err)
		}),
	)
	if cfg.MaxReconnects != nil {
		connOpts = append(connOpts, natsutil.WithMaxReconnects(*cfg.MaxReconnects))
	}

	pub, err := notif.DialPublisher(url,
		notif.WithSubjectPrefix(cfg.subjectPrefix()),
		notif.WithConnectOptions(connOpts...),
	)
	if err != nil {
		closeEmbedded()
		return nil, nil, err
	}
	logger.Info("publishing namespace events", logkey.EventSubject, notif.AllEventsSubject(cfg.subjectPrefix()))

	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Error("failed to close event publisher", "error", err)
		}
		closeEmbedded()
	}, nil
}

func clientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load nats tls certificates: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read ca certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to append ca certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
