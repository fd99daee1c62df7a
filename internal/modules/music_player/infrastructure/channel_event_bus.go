package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// topic is one buffered event channel with its handlers. Events are delivered
// to handlers in publish order by a single goroutine.
type topic[E any] struct {
	name     string
	events   chan E
	lossless bool
	mu       sync.RWMutex
	handlers []func(context.Context, E)
}

func newTopic[E any](name string, bufferSize int) *topic[E] {
	return &topic[E]{name: name, events: make(chan E, bufferSize)}
}

// newLosslessTopic creates a topic whose publishers wait for buffer space
// instead of dropping events.
func newLosslessTopic[E any](name string, bufferSize int) *topic[E] {
	t := newTopic[E](name, bufferSize)
	t.lossless = true
	return t
}

func (t *topic[E]) subscribe(handler func(context.Context, E)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

func (t *topic[E]) dispatch(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-t.events:
			if !ok {
				return
			}
			t.mu.RLock()
			handlers := t.handlers
			t.mu.RUnlock()
			for _, handler := range handlers {
				handler(ctx, event)
			}
		}
	}
}

// publish drops the event with a warning when the buffer is full, unless the
// topic is lossless, in which case it waits until the dispatcher makes room or
// the bus stops.
func (t *topic[E]) publish(ctx context.Context, event E, guildID snowflake.ID) {
	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name, "guild", guildID)
		return
	default:
	}

	if !t.lossless {
		slog.Warn("event buffer full, dropping event", "type", t.name, "guild", guildID)
		return
	}

	slog.Warn("event buffer full, waiting", "type", t.name, "guild", guildID)
	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name, "guild", guildID)
	case <-ctx.Done():
		slog.Warn("event bus stopped, dropping event", "type", t.name, "guild", guildID)
	}
}

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces. Track ends
// are never dropped, since a lost one would leave a session playing nothing.
type ChannelEventBus struct {
	nodeConnected *topic[domain.NodeConnectedEvent]
	nodeError     *topic[domain.NodeErrorEvent]
	trackEnded    *topic[domain.TrackEndedEvent]
	trackStarted  *topic[domain.TrackStartedEvent]
	sessionClosed *topic[domain.SessionClosedEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		nodeConnected: newTopic[domain.NodeConnectedEvent]("NodeConnected", bufferSize),
		nodeError:     newTopic[domain.NodeErrorEvent]("NodeError", bufferSize),
		trackEnded:    newLosslessTopic[domain.TrackEndedEvent]("TrackEnded", bufferSize),
		trackStarted:  newTopic[domain.TrackStartedEvent]("TrackStarted", bufferSize),
		sessionClosed: newTopic[domain.SessionClosedEvent]("SessionClosed", bufferSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	bus.wg.Add(5)
	go bus.nodeConnected.dispatch(ctx, &bus.wg)
	go bus.nodeError.dispatch(ctx, &bus.wg)
	go bus.trackEnded.dispatch(ctx, &bus.wg)
	go bus.trackStarted.dispatch(ctx, &bus.wg)
	go bus.sessionClosed.dispatch(ctx, &bus.wg)

	return bus
}

// open reports whether publishing is still allowed. The caller must hold b.mu.
func (b *ChannelEventBus) open(eventType string) bool {
	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
		return false
	}
	return true
}

// --- EventPublisher interface ---

// PublishNodeConnected publishes a NodeConnectedEvent.
func (b *ChannelEventBus) PublishNodeConnected(event domain.NodeConnectedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.open(b.nodeConnected.name) {
		b.nodeConnected.publish(b.ctx, event, 0)
	}
}

// PublishNodeError publishes a NodeErrorEvent.
func (b *ChannelEventBus) PublishNodeError(event domain.NodeErrorEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.open(b.nodeError.name) {
		b.nodeError.publish(b.ctx, event, 0)
	}
}

// PublishTrackEnded publishes a TrackEndedEvent.
func (b *ChannelEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.open(b.trackEnded.name) {
		b.trackEnded.publish(b.ctx, event, event.GuildID)
	}
}

// PublishTrackStarted publishes a TrackStartedEvent.
func (b *ChannelEventBus) PublishTrackStarted(event domain.TrackStartedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.open(b.trackStarted.name) {
		b.trackStarted.publish(b.ctx, event, event.GuildID)
	}
}

// PublishSessionClosed publishes a SessionClosedEvent.
func (b *ChannelEventBus) PublishSessionClosed(event domain.SessionClosedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.open(b.sessionClosed.name) {
		b.sessionClosed.publish(b.ctx, event, event.GuildID)
	}
}

// --- EventSubscriber interface ---

// OnNodeConnected registers a handler for NodeConnectedEvent.
func (b *ChannelEventBus) OnNodeConnected(handler func(context.Context, domain.NodeConnectedEvent)) {
	b.nodeConnected.subscribe(handler)
}

// OnNodeError registers a handler for NodeErrorEvent.
func (b *ChannelEventBus) OnNodeError(handler func(context.Context, domain.NodeErrorEvent)) {
	b.nodeError.subscribe(handler)
}

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *ChannelEventBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	b.trackEnded.subscribe(handler)
}

// OnTrackStarted registers a handler for TrackStartedEvent.
func (b *ChannelEventBus) OnTrackStarted(handler func(context.Context, domain.TrackStartedEvent)) {
	b.trackStarted.subscribe(handler)
}

// OnSessionClosed registers a handler for SessionClosedEvent.
func (b *ChannelEventBus) OnSessionClosed(handler func(context.Context, domain.SessionClosedEvent)) {
	b.sessionClosed.subscribe(handler)
}

// Close closes all event channels and stops dispatchers.
// After calling Close, publishing will no longer send events.
func (b *ChannelEventBus) Close() {
	// Cancel first so a publisher waiting on a full lossless topic lets go of b.mu.
	b.cancel()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.nodeConnected.events)
	close(b.nodeError.events)
	close(b.trackEnded.events)
	close(b.trackStarted.events)
	close(b.sessionClosed.events)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
