package natsutil

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coro-sh/catalog/embedns"
)

func TestConnect(t *testing.T) {
	srv, err := embedns.StartEmbeddedNATS(embedns.EmbeddedNATSConfig{NodeName: "natsutil_test"}, 3*time.Second)
	require.NoError(t, err)
	defer srv.Shutdown()

	nc, err := Connect(srv.ClientURL(), WithName("natsutil_test_client"))
	require.NoError(t, err)
	defer nc.Close()

	assert.True(t, nc.IsConnected())
	assert.Equal(t, "natsutil_test_client", nc.Opts.Name)
}

func TestConnect_InProcess(t *testing.T) {
	srv, err := embedns.StartEmbeddedNATS(embedns.EmbeddedNATSConfig{NodeName: "natsutil_test", DontListen: true}, 3*time.Second)
	require.NoError(t, err)
	defer srv.Shutdown()

	nc, err := Connect("", WithInProcessServer(srv))
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("natsutil.test")
	require.NoError(t, err)
	require.NoError(t, nc.Publish("natsutil.test", []byte("hello")))

	msg, err := sub.NextMsg(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg.Data))
}

func TestConnect_Timeout(t *testing.T) {
	// reserve a port with nothing listening on it
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	start := time.Now()
	_, err = Connect("nats://127.0.0.1:"+strconv.Itoa(port),
		WithConnectTimeout(100*time.Millisecond),
		WithReconnectBackoff(10*time.Millisecond, 20*time.Millisecond, 0),
	)
	require.ErrorContains(t, err, "nats connect timeout")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConnect_ReconnectHandler(t *testing.T) {
	cfg := embedns.EmbeddedNATSConfig{NodeName: "natsutil_test", Host: "127.0.0.1"}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	srv, err := embedns.StartEmbeddedNATS(cfg, 3*time.Second)
	require.NoError(t, err)

	disconnected := make(chan struct{}, 1)
	reconnected := make(chan struct{}, 1)

	nc, err := Connect(srv.ClientURL(),
		WithReconnectBackoff(10*time.Millisecond, 50*time.Millisecond, 0),
		WithDisconnectHandler(func(*nats.Conn, error) {
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}),
		WithReconnectHandler(func(*nats.Conn) {
			select {
			case reconnected <- struct{}{}:
			default:
			}
		}),
	)
	require.NoError(t, err)
	defer nc.Close()

	srv.Shutdown()
	srv.WaitForShutdown()

	select {
	case <-disconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for disconnect")
	}

	srv, err = embedns.StartEmbeddedNATS(cfg, 3*time.Second)
	require.NoError(t, err)
	defer srv.Shutdown()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}
}

func TestConnect_MaxReconnects(t *testing.T) {
	srv, err := embedns.StartEmbeddedNATS(embedns.EmbeddedNATSConfig{NodeName: "natsutil_test"}, 3*time.Second)
	require.NoError(t, err)

	nc, err := Connect(srv.ClientURL(),
		WithMaxReconnects(0),
		WithReconnectBackoff(10*time.Millisecond, 20*time.Millisecond, 0),
	)
	require.NoError(t, err)
	defer nc.Close()
	assert.Equal(t, 0, nc.Opts.MaxReconnect)

	srv.Shutdown()
	srv.WaitForShutdown()

	// without reconnect attempts the connection closes for good
	require.Eventually(t, nc.IsClosed, 3*time.Second, 10*time.Millisecond)
}

func TestConnect_ErrorHandler(t *testing.T) {
	srv, err := embedns.StartEmbeddedNATS(embedns.EmbeddedNATSConfig{NodeName: "natsutil_test", DontListen: true}, 3*time.Second)
	require.NoError(t, err)
	defer srv.Shutdown()

	asyncErrs := make(chan error, 1)
	nc, err := Connect("",
		WithInProcessServer(srv),
		WithErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			select {
			case asyncErrs <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)
	defer nc.Close()

	release := make(chan struct{})
	defer close(release)
	sub, err := nc.Subscribe("natsutil.slow", func(*nats.Msg) {
		<-release
	})
	require.NoError(t, err)
	require.NoError(t, sub.SetPendingLimits(1, 1024))

	for range 10 {
		require.NoError(t, nc.Publish("natsutil.slow", []byte("hello")))
	}
	require.NoError(t, nc.Flush())

	select {
	case err = <-asyncErrs:
		assert.ErrorIs(t, err, nats.ErrSlowConsumer)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for async error")
	}
}
