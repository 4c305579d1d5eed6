package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/courtlive/courtd/pkg/models"
)

// Handler receives one event. Handlers run on their subscriber's drain
// goroutine, never on the publisher's, so a slow handler cannot stall the
// store's mutation path.
type Handler func(models.Event)

// Default broadcaster tuning.
const (
	// DefaultBufferSize bounds each subscriber's queue. On overflow the
	// event is dropped for that subscriber with a logged warning; dropping
	// is the subscriber's policy, not the store's.
	DefaultBufferSize = 256

	// DefaultGracePeriod keeps a session channel alive after its terminal
	// event so late subscribers still observe it.
	DefaultGracePeriod = 5 * time.Second
)

// Bus is the per-session event broadcaster. One channel exists per session
// id; channels are created lazily on first publish or subscribe and torn
// down a grace period after the session's terminal event.
type Bus struct {
	bufferSize int
	grace      time.Duration

	mu       sync.Mutex
	channels map[string]*sessionChannel
	closed   bool
}

// sessionChannel fans one session's events out to its subscribers.
type sessionChannel struct {
	mu       sync.Mutex
	subs     map[int]*subscriber
	nextID   int
	terminal *models.Event // set once the terminal event has been published
}

type subscriber struct {
	id      int
	queue   chan models.Event
	done    chan struct{}
	doneOnce sync.Once
}

// NewBus creates a bus with default tuning.
func NewBus() *Bus {
	return NewBusWith(DefaultBufferSize, DefaultGracePeriod)
}

// NewBusWith creates a bus with explicit buffer size and teardown grace.
func NewBusWith(bufferSize int, grace time.Duration) *Bus {
	return &Bus{
		bufferSize: bufferSize,
		grace:      grace,
		channels:   make(map[string]*sessionChannel),
	}
}

// Publish delivers the event to every current subscriber of its session, in
// emission order. It never blocks: a full subscriber queue drops the event
// for that subscriber. Terminal events schedule channel teardown.
func (b *Bus) Publish(evt models.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	ch := b.channel(evt.SessionID)
	b.mu.Unlock()

	ch.mu.Lock()
	if IsTerminal(evt.Type) {
		terminal := evt
		ch.terminal = &terminal
	}
	subs := make([]*subscriber, 0, len(ch.subs))
	for _, s := range ch.subs {
		subs = append(subs, s)
	}
	ch.mu.Unlock()

	for _, s := range subs {
		s.offer(evt)
	}

	if IsTerminal(evt.Type) {
		go b.teardownAfterGrace(evt.SessionID)
	}
}

// Subscribe registers a handler for all subsequent events of a session and
// returns its unsubscribe function. If the session already terminated
// (within the grace period) the terminal event is replayed immediately so
// late subscribers do not hang waiting for an ending that already happened.
func (b *Bus) Subscribe(sessionID string, handler Handler) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	ch := b.channel(sessionID)
	b.mu.Unlock()

	sub := &subscriber{
		queue: make(chan models.Event, b.bufferSize),
		done:  make(chan struct{}),
	}

	ch.mu.Lock()
	sub.id = ch.nextID
	ch.nextID++
	ch.subs[sub.id] = sub
	terminal := ch.terminal
	ch.mu.Unlock()

	go sub.drain(handler)

	if terminal != nil {
		sub.offer(*terminal)
	}

	return func() {
		ch.mu.Lock()
		delete(ch.subs, sub.id)
		ch.mu.Unlock()
		sub.stop()
	}
}

// SubscriberCount returns the number of active subscribers for a session.
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	ch, ok := b.channels[sessionID]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subs)
}

// Close tears down every channel. Subsequent publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	channels := b.channels
	b.channels = make(map[string]*sessionChannel)
	b.mu.Unlock()

	for _, ch := range channels {
		ch.mu.Lock()
		for _, s := range ch.subs {
			s.stop()
		}
		ch.subs = make(map[int]*subscriber)
		ch.mu.Unlock()
	}
}

// channel returns (creating if needed) the channel for a session.
// Caller holds b.mu.
func (b *Bus) channel(sessionID string) *sessionChannel {
	ch, ok := b.channels[sessionID]
	if !ok {
		ch = &sessionChannel{subs: make(map[int]*subscriber)}
		b.channels[sessionID] = ch
	}
	return ch
}

// teardownAfterGrace removes a terminated session's channel once the grace
// period allows late subscribers to pick up the terminal event.
func (b *Bus) teardownAfterGrace(sessionID string) {
	time.Sleep(b.grace)

	b.mu.Lock()
	ch, ok := b.channels[sessionID]
	if ok {
		delete(b.channels, sessionID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	ch.mu.Lock()
	subs := ch.subs
	ch.subs = make(map[int]*subscriber)
	ch.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

// offer enqueues without blocking; a full queue drops the event.
func (s *subscriber) offer(evt models.Event) {
	select {
	case s.queue <- evt:
	default:
		slog.Warn("Event subscriber queue full, dropping event",
			"session_id", evt.SessionID, "event_type", evt.Type)
	}
}

// drain feeds queued events to the handler until stopped, then flushes
// whatever is already queued so a clean unsubscribe does not lose the tail.
func (s *subscriber) drain(handler Handler) {
	for {
		select {
		case evt := <-s.queue:
			handler(evt)
		case <-s.done:
			for {
				select {
				case evt := <-s.queue:
					handler(evt)
				default:
					return
				}
			}
		}
	}
}

func (s *subscriber) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}
