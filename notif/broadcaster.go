package notif

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/joshjon/kit/log"

	"github.com/coro-sh/catalog/logkey"
	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/syncutil"
)

const defaultSubscriberBuffer = 64

var _ namespace.Notifier = (*Broadcaster)(nil)

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(b *Broadcaster)

// WithBroadcasterLogger sets the logger used by the Broadcaster.
func WithBroadcasterLogger(logger log.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// Broadcaster fans out namespace events to in-process subscribers. Delivery
// never blocks the notifying mutation: an event is dropped for a subscriber
// whose buffer is full.
type Broadcaster struct {
	subs    *syncutil.Map[string, *subscription]
	dropped atomic.Int64
	logger  log.Logger
}

type subscription struct {
	id     string
	filter func(evt namespace.Event) bool

	mu     sync.Mutex
	closed bool
	ch     chan namespace.Event
}

// send reports false if the subscriber buffer is full.
func (s *subscription) send(event namespace.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		subs:   syncutil.NewMap[string, *subscription](),
		logger: log.NewLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(logkey.Component, "notif.broadcaster")
	return b
}

// Subscribe registers a subscriber receiving every event accepted by filter
// (all events if nil). The returned cancel func must be called to release the
// subscription; the channel is closed once it is.
func (b *Broadcaster) Subscribe(filter func(evt namespace.Event) bool) (<-chan namespace.Event, func()) {
	sub := &subscription{
		id:     uuid.NewString(),
		filter: filter,
		ch:     make(chan namespace.Event, defaultSubscriberBuffer),
	}
	b.subs.Set(sub.id, sub)

	return sub.ch, func() {
		if s, ok := b.subs.Delete(sub.id); ok {
			s.close()
		}
	}
}

// NotifyNamespaceEvent delivers the event to every matching subscriber.
func (b *Broadcaster) NotifyNamespaceEvent(_ context.Context, event namespace.Event) error {
	for _, sub := range b.subs.Values() {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		b.deliver(sub, event)
	}
	return nil
}

func (b *Broadcaster) deliver(sub *subscription, event namespace.Event) {
	if !sub.send(event) {
		b.dropped.Add(1)
		b.logger.Info("dropped namespace event for slow subscriber",
			logkey.EventID, event.ID.String(),
			logkey.EventType, string(event.Type),
			logkey.SubscriberID, sub.id,
		)
	}
}

// NumSubscribers returns the number of active subscriptions.
func (b *Broadcaster) NumSubscribers() int {
	return b.subs.Len()
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Fanout returns a Notifier that notifies every non-nil notifier in order. All
// notifiers are attempted and their errors are joined.
func Fanout(notifiers ...namespace.Notifier) namespace.Notifier {
	var nn fanout
	for _, n := range notifiers {
		if n != nil {
			nn = append(nn, n)
		}
	}
	return nn
}

type fanout []namespace.Notifier

func (f fanout) NotifyNamespaceEvent(ctx context.Context, event namespace.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.NotifyNamespaceEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PrefixFilter accepts events for the namespace identified by prefix and all
// of its descendants.
func PrefixFilter(prefix namespace.Identity) func(evt namespace.Event) bool {
	want := prefix.Levels()
	return func(evt namespace.Event) bool {
		if len(evt.Namespace) < len(want) {
			return false
		}
		for i, level := range want {
			if evt.Namespace[i] != level {
				return false
			}
		}
		return true
	}
}
