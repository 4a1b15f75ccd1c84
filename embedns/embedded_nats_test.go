package embedns

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartEmbeddedNATS(t *testing.T) {
	tests := []struct {
		name       string
		dontListen bool
		connect    func(t *testing.T, srv nats.InProcessConnProvider, url string) (*nats.Conn, error)
	}{
		{
			name: "network listener",
			connect: func(_ *testing.T, _ nats.InProcessConnProvider, url string) (*nats.Conn, error) {
				return nats.Connect(url)
			},
		},
		{
			name:       "in process only",
			dontListen: true,
			connect: func(_ *testing.T, srv nats.InProcessConnProvider, _ string) (*nats.Conn, error) {
				return nats.Connect("", nats.InProcessServer(srv))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := StartEmbeddedNATS(EmbeddedNATSConfig{
				NodeName:   "test_node",
				DontListen: tt.dontListen,
			}, 3*time.Second)
			require.NoError(t, err)
			defer srv.Shutdown()

			nc, err := tt.connect(t, srv, srv.ClientURL())
			require.NoError(t, err)
			defer nc.Close()

			verifyClientConn(t, nc)
		})
	}
}

func TestNewEmbeddedNATS_InvalidTLS(t *testing.T) {
	_, err := NewEmbeddedNATS(EmbeddedNATSConfig{
		TLS: &TLSConfig{CertFile: "missing-cert.pem", KeyFile: "missing-key.pem"},
	})
	require.Error(t, err)
}

func verifyClientConn(t *testing.T, nc *nats.Conn) {
	msgChan := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("test.subject", msgChan)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, nc.Publish("test.subject", []byte("hello world")))
	select {
	case msg := <-msgChan:
		assert.Equal(t, "hello world", string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive message")
	}
}
