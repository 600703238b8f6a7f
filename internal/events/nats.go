package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/gatekeeper/internal/config"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSObserver publishes events as JSON to "<prefix>.<type>".
// Publish failures are logged and dropped.
type NATSObserver struct {
	conn   *nats.Conn
	prefix string
	logger *logging.Logger
}

// NewNATSObserver wraps an existing connection.
func NewNATSObserver(conn *nats.Conn, prefix string, logger *logging.Logger) *NATSObserver {
	if prefix == "" {
		prefix = "gatekeeper.events"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &NATSObserver{conn: conn, prefix: prefix, logger: logger.Named("events.nats")}
}

// Subject returns the subject an event type is published on.
func (o *NATSObserver) Subject(typ Type) string {
	return o.prefix + "." + string(typ)
}

// Observe implements Observer.
func (o *NATSObserver) Observe(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		o.logger.Warn(ctx, "failed to encode event", zap.String("event.type", string(e.Type)), zap.Error(err))
		return
	}
	if err := o.conn.Publish(o.Subject(e.Type), data); err != nil {
		o.logger.Warn(ctx, "failed to publish event", zap.String("event.type", string(e.Type)), zap.Error(err))
	}
}

// Close flushes pending publishes and closes the connection.
func (o *NATSObserver) Close() error {
	if o.conn == nil || o.conn.IsClosed() {
		return nil
	}
	return o.conn.Drain()
}

// Connect dials NATS for event forwarding.
func Connect(cfg config.EventsConfig, logger *logging.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx := context.Background()

	opts := []nats.Option{
		nats.Name("gatekeeper"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(ctx, "nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info(ctx, "nats reconnected", zap.String("url", nc.ConnectedUrlRedacted()))
		}),
	}
	if cfg.NATSToken.IsSet() {
		opts = append(opts, nats.Token(cfg.NATSToken.Value()))
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	return nc, nil
}
