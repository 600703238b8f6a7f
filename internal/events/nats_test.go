package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestNATSObserver_Publishes(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := Connect(config.EventsConfig{NATSURL: server.ClientURL()}, logging.Nop())
	require.NoError(t, err)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 4)
	_, err = sub.ChanSubscribe("test.events.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	o := NewNATSObserver(nc, "test.events", nil)
	sent := New(PhaseFailed, "workflow", map[string]any{"phase": "architecture", "score": 0.8})
	o.Observe(context.Background(), sent)
	require.NoError(t, nc.Flush())

	select {
	case msg := <-msgs:
		assert.Equal(t, "test.events.phase_failed", msg.Subject)

		var got Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, PhaseFailed, got.Type)
		assert.Equal(t, "architecture", got.Attrs["phase"])
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}

	assert.NoError(t, o.Close())
	assert.NoError(t, o.Close())
}

func TestNATSObserver_DefaultPrefix(t *testing.T) {
	o := NewNATSObserver(nil, "", nil)
	assert.Equal(t, "gatekeeper.events.hook_error", o.Subject(HookError))
	assert.NoError(t, o.Close())
}

func TestNATSObserver_PublishAfterCloseIsLogged(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	nc.Close()

	tl := logging.NewTestLogger()
	o := NewNATSObserver(nc, "x", tl.Logger)
	o.Observe(context.Background(), New(HookError, "hooks", nil))

	assert.Equal(t, 1, tl.FilterMessage("failed to publish").Len())
}
