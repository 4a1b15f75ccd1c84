// Package notif publishes namespace change events to NATS.
package notif

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/natsutil"
)

var _ namespace.Notifier = (*Publisher)(nil)

// PublisherOption configures a Publisher.
type PublisherOption func(p *publisherOptions)

type publisherOptions struct {
	subjectPrefix string
	flush         bool
	connOpts      []natsutil.ConnectOption
}

// WithSubjectPrefix sets the subject prefix events are published under
// (default: catalog.events).
func WithSubjectPrefix(prefix string) PublisherOption {
	return func(p *publisherOptions) {
		p.subjectPrefix = prefix
	}
}

// WithFlush makes every publish wait for the server to acknowledge the
// buffered message before returning.
func WithFlush() PublisherOption {
	return func(p *publisherOptions) {
		p.flush = true
	}
}

// WithConnectOptions appends options used when dialing NATS.
func WithConnectOptions(opts ...natsutil.ConnectOption) PublisherOption {
	return func(p *publisherOptions) {
		p.connOpts = append(p.connOpts, opts...)
	}
}

// Publisher is a namespace.Notifier that publishes JSON encoded events on
// <prefix>.namespaces.<event type>.
type Publisher struct {
	nc            *nats.Conn
	subjectPrefix string
	flush         bool
}

// DialPublisher connects to the NATS server at url and returns a Publisher.
func DialPublisher(url string, opts ...PublisherOption) (*Publisher, error) {
	o := publisherOptions{
		subjectPrefix: constants.DefaultEventSubjectPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}

	connOpts := append([]natsutil.ConnectOption{
		natsutil.WithName(constants.AppName + "_event_publisher"),
	}, o.connOpts...)

	nc, err := natsutil.Connect(url, connOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect event publisher: %w", err)
	}

	return &Publisher{
		nc:            nc,
		subjectPrefix: o.subjectPrefix,
		flush:         o.flush,
	}, nil
}

// NotifyNamespaceEvent publishes the event.
func (p *Publisher) NotifyNamespaceEvent(ctx context.Context, event namespace.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err = p.nc.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	if p.flush {
		if err = p.nc.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("flush event: %w", err)
		}
	}

	return nil
}

// Subject returns the subject events of the given type are published on.
func (p *Publisher) Subject(eventType namespace.EventType) string {
	return EventSubject(p.subjectPrefix, eventType)
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// EventSubject builds the subject for an event type under prefix.
func EventSubject(prefix string, eventType namespace.EventType) string {
	return prefix + ".namespaces." + string(eventType)
}

// AllEventsSubject returns a wildcard subject matching every namespace event
// under prefix.
func AllEventsSubject(prefix string) string {
	return prefix + ".namespaces.*"
}
