package natsutil

import (
	"crypto/tls"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
)

const (
	defaultConnectTimeout             = 20 * time.Second
	defaultMaxReconnects              = -1 // infinite
	defaultReconnectBackoffInitial    = 1 * time.Second
	defaultReconnectBackoffMax        = 10 * time.Minute
	defaultReconnectBackoffJitter     = 0.2
	defaultReconnectBackoffMultiplier = 2.0
)

type connectOptions struct {
	name                    string
	tls                     *tls.Config
	inProcess               nats.InProcessConnProvider
	connectTimeout          time.Duration
	disconnectHandler       func(*nats.Conn, error)
	reconnectHandler        func(*nats.Conn)
	errorHandler            func(*nats.Conn, *nats.Subscription, error)
	maxReconnects           int
	reconnectBackoffInitial time.Duration
	reconnectBackoffMax     time.Duration
	reconnectBackoffJitter  float64
}

type ConnectOption func(opts *connectOptions)

// WithName sets the client connection name reported to the server.
func WithName(name string) ConnectOption {
	return func(opts *connectOptions) {
		opts.name = name
	}
}

func WithTLS(tls *tls.Config) ConnectOption {
	return func(opts *connectOptions) {
		opts.tls = tls
	}
}

// WithInProcessServer connects to an embedded server without a network hop.
func WithInProcessServer(srv nats.InProcessConnProvider) ConnectOption {
	return func(opts *connectOptions) {
		opts.inProcess = srv
	}
}

// WithConnectTimeout sets how long Connect waits for the first connection.
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(opts *connectOptions) {
		opts.connectTimeout = timeout
	}
}

// WithDisconnectHandler sets a callback that is invoked when the connection is lost.
func WithDisconnectHandler(handler func(*nats.Conn, error)) ConnectOption {
	return func(opts *connectOptions) {
		opts.disconnectHandler = handler
	}
}

// WithReconnectHandler sets a callback that is invoked when the connection is re-established.
func WithReconnectHandler(handler func(*nats.Conn)) ConnectOption {
	return func(opts *connectOptions) {
		opts.reconnectHandler = handler
	}
}

// WithErrorHandler sets a callback that is invoked when an async error occurs.
func WithErrorHandler(handler func(*nats.Conn, *nats.Subscription, error)) ConnectOption {
	return func(opts *connectOptions) {
		opts.errorHandler = handler
	}
}

// WithMaxReconnects sets the maximum number of reconnect attempts (-1 for infinite).
func WithMaxReconnects(max int) ConnectOption {
	return func(opts *connectOptions) {
		opts.maxReconnects = max
	}
}

// WithReconnectBackoff sets the exponential backoff parameters for reconnection.
func WithReconnectBackoff(initial, max time.Duration, jitter float64) ConnectOption {
	return func(opts *connectOptions) {
		opts.reconnectBackoffInitial = initial
		opts.reconnectBackoffMax = max
		opts.reconnectBackoffJitter = jitter
	}
}

// Connect dials url and blocks until the first connection is established or
// the connect timeout elapses. Reconnect attempts use exponential backoff.
func Connect(url string, opts ...ConnectOption) (*nats.Conn, error) {
	connOpts := connectOptions{
		connectTimeout:          defaultConnectTimeout,
		maxReconnects:           defaultMaxReconnects,
		reconnectBackoffInitial: defaultReconnectBackoffInitial,
		reconnectBackoffMax:     defaultReconnectBackoffMax,
		reconnectBackoffJitter:  defaultReconnectBackoffJitter,
	}
	for _, opt := range opts {
		opt(&connOpts)
	}

	var (
		connectedOnce sync.Once
		connectedCh   = make(chan struct{})
		backoffMu     sync.Mutex
	)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = connOpts.reconnectBackoffInitial
	b.MaxInterval = connOpts.reconnectBackoffMax
	b.Multiplier = defaultReconnectBackoffMultiplier
	b.RandomizationFactor = connOpts.reconnectBackoffJitter
	b.MaxElapsedTime = 0
	b.Reset()

	natsOpts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(connOpts.maxReconnects),
		nats.CustomReconnectDelay(func(_ int) time.Duration {
			backoffMu.Lock()
			defer backoffMu.Unlock()
			return b.NextBackOff()
		}),
		nats.ConnectHandler(func(_ *nats.Conn) {
			connectedOnce.Do(func() { close(connectedCh) })
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			backoffMu.Lock()
			b.Reset()
			backoffMu.Unlock()
			if connOpts.reconnectHandler != nil {
				connOpts.reconnectHandler(nc)
			}
		}),
	}

	if connOpts.name != "" {
		natsOpts = append(natsOpts, nats.Name(connOpts.name))
	}

	if connOpts.inProcess != nil {
		natsOpts = append(natsOpts, nats.InProcessServer(connOpts.inProcess))
	}

	if connOpts.disconnectHandler != nil {
		natsOpts = append(natsOpts, nats.DisconnectErrHandler(connOpts.disconnectHandler))
	}

	if connOpts.errorHandler != nil {
		natsOpts = append(natsOpts, nats.ErrorHandler(connOpts.errorHandler))
	}

	if connOpts.tls != nil {
		natsOpts = append(natsOpts, nats.Secure(connOpts.tls))
	}

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, err
	}

	// already connected when RetryOnFailedConnect succeeds on the first attempt
	if nc.IsConnected() {
		connectedOnce.Do(func() { close(connectedCh) })
	}

	select {
	case <-connectedCh:
	case <-time.After(connOpts.connectTimeout):
		nc.Close()
		return nil, errors.New("nats connect timeout")
	}

	return nc, nil
}
