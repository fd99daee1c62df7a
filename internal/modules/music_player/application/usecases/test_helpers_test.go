package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/session"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

func mockTrack(title string) domain.Track {
	return domain.Track{
		Encoded:  "encoded-" + title,
		Title:    title,
		Author:   "Artist",
		URI:      "https://example.com/" + title,
		Duration: 3 * time.Minute,
	}
}

func mockEntry(title string, requester snowflake.ID) domain.QueueEntry {
	return domain.NewQueueEntry(mockTrack(title), requester, time.Unix(1700000000, 0))
}

// mockPlayer is a node-side player that records what it was asked to do.
type mockPlayer struct {
	mu      sync.Mutex
	guildID snowflake.ID
	queue   *domain.Queue

	playing   bool
	paused    bool
	connected bool
	destroyed bool
	played    []string // encoded track of every Play call
	stopCalls int

	connectErr error
	playErr    error
	pauseErr   error
	stopErr    error
}

func (p *mockPlayer) GuildID() snowflake.ID { return p.guildID }
func (p *mockPlayer) Queue() *domain.Queue  { return p.queue }

func (p *mockPlayer) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connectErr != nil {
		return p.connectErr
	}
	p.connected = true
	return nil
}

func (p *mockPlayer) Play(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	head, _ := p.queue.Head()
	p.played = append(p.played, head.Track.Encoded)
	p.playing = true
	p.paused = false
	return nil
}

func (p *mockPlayer) Pause(_ context.Context, paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pauseErr != nil {
		return p.pauseErr
	}
	p.paused = paused
	return nil
}

func (p *mockPlayer) Stop(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopErr != nil {
		return p.stopErr
	}
	p.stopCalls++
	p.playing = false
	p.paused = false
	return nil
}

func (p *mockPlayer) Destroy(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	p.playing = false
	p.paused = false
	return nil
}

func (p *mockPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *mockPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *mockPlayer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// disconnect simulates the bot being removed from voice.
func (p *mockPlayer) disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
}

// finish simulates the node listener marking the player idle before the track
// end reaches the guild's region.
func (p *mockPlayer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.paused = false
}

// lastPlayed returns the encoded track most recently handed to the node.
func (p *mockPlayer) lastPlayed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.played) == 0 {
		return ""
	}
	return p.played[len(p.played)-1]
}

// mockNode returns one track per query, titled after the query.
type mockNode struct {
	mu        sync.Mutex
	connected bool
	searchErr error
	noMatch   map[string]bool
	blockFor  map[string]bool // queries whose search blocks until ctx ends
	players   map[snowflake.ID]*mockPlayer
	created   int

	// configure is applied to every new player.
	configure func(*mockPlayer)
}

func newMockNode() *mockNode {
	return &mockNode{
		connected: true,
		noMatch:   make(map[string]bool),
		blockFor:  make(map[string]bool),
		players:   make(map[snowflake.ID]*mockPlayer),
	}
}

func (n *mockNode) Search(
	ctx context.Context,
	query string,
	_ snowflake.ID,
) ([]domain.Track, error) {
	n.mu.Lock()
	block := n.blockFor[query]
	searchErr := n.searchErr
	noMatch := n.noMatch[query]
	n.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if searchErr != nil {
		return nil, searchErr
	}
	if noMatch {
		return nil, nil
	}
	return []domain.Track{mockTrack(query)}, nil
}

func (n *mockNode) CreatePlayer(guildID, _, _ snowflake.ID) (ports.PlayerHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p := &mockPlayer{guildID: guildID, queue: domain.NewQueue()}
	if n.configure != nil {
		n.configure(p)
	}
	n.players[guildID] = p
	n.created++
	return p, nil
}

func (n *mockNode) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *mockNode) player(guildID snowflake.ID) *mockPlayer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.players[guildID]
}

// mockStore is an in-memory QueueRepository with injectable write failures.
type mockStore struct {
	mu        sync.Mutex
	queues    map[snowflake.ID][]domain.QueueEntry
	appendErr error
	removeErr error
	clearErr  error
}

func newMockStore() *mockStore {
	return &mockStore{queues: make(map[snowflake.ID][]domain.QueueEntry)}
}

func (s *mockStore) Get(_ context.Context, guildID snowflake.ID) []domain.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QueueEntry(nil), s.queues[guildID]...)
}

func (s *mockStore) Len(_ context.Context, guildID snowflake.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[guildID])
}

func (s *mockStore) Append(_ context.Context, guildID snowflake.ID, entry domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.queues[guildID] = append(s.queues[guildID], entry)
	return nil
}

func (s *mockStore) RemoveAt(_ context.Context, guildID snowflake.ID, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return false, s.removeErr
	}
	q := s.queues[guildID]
	if index < 1 || index > len(q) {
		return false, nil
	}
	s.queues[guildID] = append(q[:index-1:index-1], q[index:]...)
	return true, nil
}

func (s *mockStore) Truncate(_ context.Context, guildID snowflake.ID, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	if q := s.queues[guildID]; keep < len(q) {
		s.queues[guildID] = q[:max(keep, 0)]
	}
	return nil
}

func (s *mockStore) Clear(ctx context.Context, guildID snowflake.ID) error {
	return s.Truncate(ctx, guildID, 0)
}

func (s *mockStore) PopFront(_ context.Context, guildID snowflake.ID) (*domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[guildID]
	if len(q) == 0 {
		return nil, nil
	}
	entry := q[0]
	s.queues[guildID] = q[1:]
	return &entry, nil
}

// mockEventBus records published events and keeps subscribed handlers so tests can emit events.
type mockEventBus struct {
	mu             sync.Mutex
	trackStarted   []domain.TrackStartedEvent
	sessionClosed  []domain.SessionClosedEvent
	onTrackEnded   []func(context.Context, domain.TrackEndedEvent)
	onNodeError    []func(context.Context, domain.NodeErrorEvent)
	onNodeConnect  []func(context.Context, domain.NodeConnectedEvent)
	onTrackStarted []func(context.Context, domain.TrackStartedEvent)
	onClosed       []func(context.Context, domain.SessionClosedEvent)
}

func (b *mockEventBus) PublishNodeConnected(event domain.NodeConnectedEvent) {
	for _, h := range b.onNodeConnect {
		h(context.Background(), event)
	}
}

func (b *mockEventBus) PublishNodeError(event domain.NodeErrorEvent) {
	for _, h := range b.onNodeError {
		h(context.Background(), event)
	}
}

func (b *mockEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	for _, h := range b.onTrackEnded {
		h(context.Background(), event)
	}
}

func (b *mockEventBus) PublishTrackStarted(event domain.TrackStartedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackStarted = append(b.trackStarted, event)
}

func (b *mockEventBus) PublishSessionClosed(event domain.SessionClosedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionClosed = append(b.sessionClosed, event)
}

func (b *mockEventBus) OnNodeConnected(h func(context.Context, domain.NodeConnectedEvent)) {
	b.onNodeConnect = append(b.onNodeConnect, h)
}

func (b *mockEventBus) OnNodeError(h func(context.Context, domain.NodeErrorEvent)) {
	b.onNodeError = append(b.onNodeError, h)
}

func (b *mockEventBus) OnTrackEnded(h func(context.Context, domain.TrackEndedEvent)) {
	b.onTrackEnded = append(b.onTrackEnded, h)
}

func (b *mockEventBus) OnTrackStarted(h func(context.Context, domain.TrackStartedEvent)) {
	b.onTrackStarted = append(b.onTrackStarted, h)
}

func (b *mockEventBus) OnSessionClosed(h func(context.Context, domain.SessionClosedEvent)) {
	b.onClosed = append(b.onClosed, h)
}

func (b *mockEventBus) closedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessionClosed)
}

type mockMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
	nodeUp   bool
	sessions int
	ended    []domain.TrackEndReason
}

func (m *mockMetrics) CommandHandled(command, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string][]string)
	}
	m.outcomes[command] = append(m.outcomes[command], outcome)
}

func (m *mockMetrics) SessionsActive(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = count
}

func (m *mockMetrics) NodeUp(up bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeUp = up
}

func (m *mockMetrics) TrackEnded(reason domain.TrackEndReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, reason)
}

const (
	testGuild = snowflake.ID(1)
	testUser  = snowflake.ID(2)
	testText  = snowflake.ID(3)
	testVoice = snowflake.ID(4)
)

type harness struct {
	manager    *SessionManager
	node       *mockNode
	store      *mockStore
	bus        *mockEventBus
	registry   *session.Registry
	dispatcher *Dispatcher
	metrics    *mockMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		node:       newMockNode(),
		store:      newMockStore(),
		bus:        &mockEventBus{},
		registry:   session.NewRegistry(),
		dispatcher: NewDispatcher(time.Minute),
		metrics:    &mockMetrics{},
	}
	h.manager = NewSessionManager(
		h.registry,
		h.store,
		h.node,
		h.dispatcher,
		h.bus,
		h.bus,
		h.metrics,
		100*time.Millisecond,
	)
	h.manager.Start()
	t.Cleanup(h.dispatcher.Close)

	return h
}

func (h *harness) play(t *testing.T, query string) *PlayOutput {
	t.Helper()
	out, err := h.manager.Play(context.Background(), PlayInput{
		GuildID:        testGuild,
		UserID:         testUser,
		VoiceChannelID: testVoice,
		TextChannelID:  testText,
		Query:          query,
	})
	if err != nil {
		t.Fatalf("play %q: %v", query, err)
	}
	return out
}

// endTrack emits a track end for whatever the guild's player last started and
// waits until the guild's region has handled it.
func (h *harness) endTrack(guildID snowflake.ID, reason domain.TrackEndReason) {
	encoded := ""
	if p := h.node.player(guildID); p != nil {
		encoded = p.lastPlayed()
	}
	h.bus.PublishTrackEnded(domain.TrackEndedEvent{
		GuildID: guildID,
		Encoded: encoded,
		Reason:  reason,
	})
	h.flush(guildID)
}

// flush waits for every task already queued for the guild.
func (h *harness) flush(guildID snowflake.ID) {
	_ = h.dispatcher.Run(context.Background(), guildID, func(context.Context) error { return nil })
}

func titles(entries []domain.QueueEntry) []string {
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.Track.Title
	}
	return result
}
