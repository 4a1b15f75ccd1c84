package notif

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/joshjon/kit/log"
	natserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/embedns"
	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/natsutil"
)

const testTimeout = 5 * time.Second

func TestPublisher_NotifyNamespaceEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	srv := startEmbeddedNATS(t)
	events := subscribe(t, srv.ClientURL(), AllEventsSubject(constants.DefaultEventSubjectPrefix))

	pub, err := DialPublisher(srv.ClientURL(), WithFlush())
	require.NoError(t, err)
	defer pub.Close()

	svc := namespace.NewService(namespace.NewMemoryRepository(),
		namespace.WithLogger(log.NewLogger(log.WithDevelopment())),
		namespace.WithNotifier(pub),
	)

	id := namespace.MustIdentity("events_foo1", "a")
	_, err = svc.CreateNamespace(ctx, id, map[string]string{"a": "b"})
	require.NoError(t, err)
	_, err = svc.UpdateNamespaceProperties(ctx, id, []string{"a"}, []namespace.Property{{Key: "c", Value: "d"}})
	require.NoError(t, err)
	require.NoError(t, svc.DropNamespace(ctx, id))

	wantTypes := []namespace.EventType{
		namespace.EventTypeCreated,
		namespace.EventTypeUpdated,
		namespace.EventTypeDropped,
	}

	for _, wantType := range wantTypes {
		select {
		case msg := <-events:
			assert.Equal(t, pub.Subject(wantType), msg.Subject)

			var got namespace.Event
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, wantType, got.Type)
			assert.Equal(t, []string{"events_foo1", "a"}, got.Namespace)
			assert.Equal(t, "evt", got.ID.Prefix())

			switch wantType {
			case namespace.EventTypeCreated:
				assert.Equal(t, map[string]string{"a": "b"}, got.Properties)
			case namespace.EventTypeUpdated:
				require.NotNil(t, got.Diff)
				assert.Equal(t, []string{"a"}, got.Diff.Removed)
				assert.Equal(t, []string{"c"}, got.Diff.Updated)
			}
		case <-ctx.Done():
			t.Fatalf("did not receive %s event", wantType)
		}
	}
}

func TestPublisher_SubjectPrefix(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	srv := startEmbeddedNATS(t)
	events := subscribe(t, srv.ClientURL(), "tenant1.namespaces.created")

	pub, err := DialPublisher(srv.ClientURL(), WithSubjectPrefix("tenant1"), WithFlush())
	require.NoError(t, err)
	defer pub.Close()

	err = pub.NotifyNamespaceEvent(ctx, namespace.Event{
		ID:        namespace.NewEventID(),
		Type:      namespace.EventTypeCreated,
		Namespace: []string{"prefix_foo1"},
		Time:      time.Now().UTC(),
	})
	require.NoError(t, err)

	select {
	case msg := <-events:
		assert.Equal(t, "tenant1.namespaces.created", msg.Subject)
	case <-ctx.Done():
		t.Fatal("did not receive event")
	}
}

func TestPublisher_InProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), testTimeout)
	defer cancel()

	srv, err := embedns.StartEmbeddedNATS(embedns.EmbeddedNATSConfig{DontListen: true}, testTimeout)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	pub, err := DialPublisher("", WithFlush(), WithConnectOptions(natsutil.WithInProcessServer(srv)))
	require.NoError(t, err)
	defer pub.Close()

	err = pub.NotifyNamespaceEvent(ctx, namespace.Event{
		ID:        namespace.NewEventID(),
		Type:      namespace.EventTypeDropped,
		Namespace: []string{"inproc_foo1"},
		Time:      time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestDialPublisher_Timeout(t *testing.T) {
	_, err := DialPublisher("nats://127.0.0.1:1",
		WithConnectOptions(natsutil.WithConnectTimeout(100*time.Millisecond)),
	)
	require.Error(t, err)
}

func startEmbeddedNATS(t *testing.T) *natserver.Server {
	t.Helper()
	srv, err := embedns.StartEmbeddedNATS(embedns.EmbeddedNATSConfig{NodeName: "test_node"}, testTimeout)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)
	return srv
}

func subscribe(t *testing.T, url string, subject string) <-chan *nats.Msg {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	msgs := make(chan *nats.Msg, 16)
	_, err = nc.ChanSubscribe(subject, msgs)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return msgs
}
