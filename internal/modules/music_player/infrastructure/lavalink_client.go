package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// nodeName is the name of the single Lavalink node.
const nodeName = "main"

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer buffers voice events to ensure both VoiceStateUpdate and
// VoiceServerUpdate are received before forwarding to Lavalink.
// This prevents "Partial Lavalink voice state" errors when events arrive out of order.
type voiceEventBuffer struct {
	mu sync.Mutex

	// From VoiceStateUpdate
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	// From VoiceServerUpdate
	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// getData returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) getData() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID = b.channelID
	sessionID = b.sessionID
	token = b.token
	endpoint = b.endpoint

	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkConfig contains Lavalink connection and client behaviour settings.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool

	// SearchRate and SearchBurst bound how often the node is asked to resolve queries.
	SearchRate  float64
	SearchBurst int

	// HealthInterval is how often node status is polled. Zero disables the watcher.
	HealthInterval time.Duration
}

// LavalinkClient is the playback node client backed by DisGoLink.
// It is shared by every guild; per-guild control goes through lavalinkPlayer.
type LavalinkClient struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID
	config  LavalinkConfig
	bus     ports.EventPublisher
	limiter *rate.Limiter

	nodeMu sync.RWMutex
	node   disgolink.Node

	playersMu sync.Mutex
	players   map[snowflake.ID]*lavalinkPlayer

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	// voiceBuffers holds buffered voice events per guild to handle out-of-order events
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewLavalinkClient creates a client and adds the node. If the node cannot be reached the
// client starts disconnected and the health watcher keeps trying.
func NewLavalinkClient(
	session *discordgo.Session,
	bus ports.EventPublisher,
	config LavalinkConfig,
) (*LavalinkClient, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	limit := rate.Inf
	if config.SearchRate > 0 {
		limit = rate.Limit(config.SearchRate)
	}

	c := &LavalinkClient{
		session:      session,
		botID:        botID,
		config:       config,
		bus:          bus,
		limiter:      rate.NewLimiter(limit, max(config.SearchBurst, 1)),
		players:      make(map[snowflake.ID]*lavalinkPlayer),
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		stop:         make(chan struct{}),
	}

	c.link = disgolink.New(botID,
		disgolink.WithListenerFunc(c.onTrackStart),
		disgolink.WithListenerFunc(c.onTrackEnd),
		disgolink.WithListenerFunc(c.onTrackException),
		disgolink.WithListenerFunc(c.onTrackStuck),
		disgolink.WithListenerFunc(c.onWebSocketClosed),
	)

	ctx, cancel := context.WithTimeout(context.Background(), voiceConnectionTimeout)
	defer cancel()
	if err := c.addNode(ctx); err != nil {
		slog.Warn("Lavalink node unavailable, starting degraded",
			"address", config.Address,
			"error", err,
		)
	}

	if config.HealthInterval > 0 {
		c.wg.Add(1)
		go c.watchHealth(config.HealthInterval)
	}

	return c, nil
}

func (c *LavalinkClient) addNode(ctx context.Context) error {
	node, err := c.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     nodeName,
		Address:  c.config.Address,
		Password: c.config.Password,
		Secure:   c.config.Secure,
	})
	if err != nil {
		c.link.RemoveNode(nodeName)
		return fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	c.nodeMu.Lock()
	c.node = node
	c.nodeMu.Unlock()

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", c.config.Address)
	return nil
}

func (c *LavalinkClient) currentNode() disgolink.Node {
	c.nodeMu.RLock()
	defer c.nodeMu.RUnlock()
	return c.node
}

// Connected reports whether the node's websocket is up.
func (c *LavalinkClient) Connected() bool {
	node := c.currentNode()
	return node != nil && node.Status() == disgolink.StatusConnected
}

// watchHealth publishes node loss and recovery, and reconnects a lost node.
func (c *LavalinkClient) watchHealth(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	up := c.Connected()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		if !c.Connected() {
			if up {
				up = false
				c.bus.PublishNodeError(domain.NodeErrorEvent{
					Node:    nodeName,
					Message: "lost connection to playback node",
				})
			}
			c.reconnect(interval)
		}

		if c.Connected() && !up {
			up = true
			c.bus.PublishNodeConnected(domain.NodeConnectedEvent{Node: nodeName})
		}
	}
}

func (c *LavalinkClient) reconnect(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	node := c.currentNode()
	if node == nil {
		if err := c.addNode(ctx); err != nil {
			slog.Debug("Lavalink node still unavailable", "error", err)
		}
		return
	}
	if node.Status() == disgolink.StatusConnecting {
		return
	}
	if err := node.Open(ctx); err != nil {
		slog.Debug("failed to reopen Lavalink node", "error", err)
	}
}

// Search resolves a query into tracks. Plain text is searched on YouTube; URLs are loaded directly.
// The rate limiter wait counts against ctx, so a saturated limiter surfaces as a timeout.
func (c *LavalinkClient) Search(
	ctx context.Context,
	query string,
	_ snowflake.ID,
) ([]domain.Track, error) {
	q := domain.NewSearchQuery(query, domain.SourceYouTube)
	if !q.IsValid() {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("search rate limit: %w", context.DeadlineExceeded)
	}

	node := c.currentNode()
	if node == nil {
		return nil, errors.New("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, q.Identifier())
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return convertLoadResult(result)
}

// convertLoadResult flattens a Lavalink load result into tracks. Empty results are not errors.
func convertLoadResult(result *lavalink.LoadResult) ([]domain.Track, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return []domain.Track{convertTrack(data)}, nil

	case lavalink.Playlist:
		return convertTracks(data.Tracks), nil

	case lavalink.Search:
		return convertTracks(data), nil

	case lavalink.Exception:
		return nil, fmt.Errorf("node failed to load tracks: %s", data.Message)

	default:
		return nil, nil
	}
}

func convertTracks(tracks []lavalink.Track) []domain.Track {
	result := make([]domain.Track, len(tracks))
	for i, track := range tracks {
		result[i] = convertTrack(track)
	}
	return result
}

func convertTrack(track lavalink.Track) domain.Track {
	info := track.Info
	uri := ""
	if info.URI != nil {
		uri = *info.URI
	}

	return domain.Track{
		Encoded:    track.Encoded,
		Identifier: info.Identifier,
		Title:      info.Title,
		Author:     info.Author,
		URI:        uri,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

// CreatePlayer creates the guild's player handle. Voice is joined on Connect.
func (c *LavalinkClient) CreatePlayer(
	guildID, voiceChannelID, _ snowflake.ID,
) (ports.PlayerHandle, error) {
	if c.currentNode() == nil {
		return nil, errors.New("no available Lavalink node")
	}

	p := &lavalinkPlayer{
		client:         c,
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		queue:          domain.NewQueue(),
	}

	c.playersMu.Lock()
	c.players[guildID] = p
	c.playersMu.Unlock()

	return p, nil
}

func (c *LavalinkClient) player(guildID snowflake.ID) *lavalinkPlayer {
	c.playersMu.Lock()
	defer c.playersMu.Unlock()
	return c.players[guildID]
}

func (c *LavalinkClient) forgetPlayer(p *lavalinkPlayer) {
	c.playersMu.Lock()
	defer c.playersMu.Unlock()
	if c.players[p.guildID] == p {
		delete(c.players, p.guildID)
	}
}

// joinChannel connects to a voice channel.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (c *LavalinkClient) joinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	pending := &pendingVoiceConnection{
		ready: make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, guildID)
		c.pendingMu.Unlock()
	}()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return fmt.Errorf("waiting for voice connection: %w", context.DeadlineExceeded)
	}
}

// leaveChannel destroys the node player and disconnects from voice.
func (c *LavalinkClient) leaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
		c.link.RemovePlayer(guildID)
	}

	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkClient) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, false)
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (c *LavalinkClient) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	// Handle disconnect immediately (no need to wait for VoiceServerUpdate)
	if channelID == nil {
		if c.joinPending(guildID) {
			// Left over from the previous session's leave.
			slog.Debug("ignoring voice disconnect during join", "guild", guildID)
			return
		}
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.clearVoiceBuffer(guildID)
		if p := c.player(guildID); p != nil {
			p.setConnected(false)
		}
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceState(channelID, event.SessionID) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, true)
}

func (c *LavalinkClient) joinPending(guildID snowflake.ID) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.pending[guildID] != nil
}

func (c *LavalinkClient) signalPending(guildID snowflake.ID, isVoiceState bool) {
	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (c *LavalinkClient) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, exists := c.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (c *LavalinkClient) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents sends the buffered voice events to Lavalink.
func (c *LavalinkClient) forwardBufferedVoiceEvents(
	guildID snowflake.ID,
	buffer *voiceEventBuffer,
) {
	channelID, sessionID, token, endpoint := buffer.getData()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkClient) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkClient) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	reason := convertEndReason(event.Reason)
	if p := c.player(player.GuildID()); p != nil && reason.ShouldAdvanceQueue() {
		p.trackEnded(event.Track.Encoded)
	}

	c.bus.PublishTrackEnded(domain.TrackEndedEvent{
		GuildID: player.GuildID(),
		Encoded: event.Track.Encoded,
		Reason:  reason,
	})
}

func (c *LavalinkClient) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkClient) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
}

func (c *LavalinkClient) onWebSocketClosed(
	player disgolink.Player,
	event lavalink.WebSocketClosedEvent,
) {
	slog.Warn("voice websocket closed",
		"guild", player.GuildID(),
		"code", event.Code,
		"reason", event.Reason,
		"by_remote", event.ByRemote,
	)
	if p := c.player(player.GuildID()); p != nil {
		p.setConnected(false)
	}
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// Close stops the health watcher and closes every node connection.
func (c *LavalinkClient) Close() {
	close(c.stop)
	c.wg.Wait()
	c.link.Close()
}

// lavalinkPlayer is one guild's player. It owns the guild's playback queue and
// tracks whether a track is currently handed to the node.
type lavalinkPlayer struct {
	client         *LavalinkClient
	guildID        snowflake.ID
	voiceChannelID snowflake.ID
	queue          *domain.Queue

	mu        sync.Mutex
	connected bool
	current   string // encoded track handed to the node, "" when idle
	paused    bool
}

func (p *lavalinkPlayer) GuildID() snowflake.ID { return p.guildID }
func (p *lavalinkPlayer) Queue() *domain.Queue  { return p.queue }

func (p *lavalinkPlayer) Connect(ctx context.Context) error {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if connected {
		return nil
	}

	if err := p.client.joinChannel(ctx, p.guildID, p.voiceChannelID); err != nil {
		return err
	}
	p.setConnected(true)
	return nil
}

func (p *lavalinkPlayer) Play(ctx context.Context) error {
	head, ok := p.queue.Head()
	if !ok {
		return errors.New("nothing to play")
	}

	// Use WithEncodedTrack to avoid userData:null issue
	player := p.client.link.Player(p.guildID)
	err := player.Update(ctx,
		lavalink.WithEncodedTrack(head.Track.Encoded),
		lavalink.WithPaused(false),
	)
	if err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}

	p.mu.Lock()
	p.current = head.Track.Encoded
	p.paused = false
	p.mu.Unlock()
	return nil
}

func (p *lavalinkPlayer) Pause(ctx context.Context, paused bool) error {
	player := p.client.link.Player(p.guildID)
	if err := player.Update(ctx, lavalink.WithPaused(paused)); err != nil {
		return fmt.Errorf("failed to set paused=%t: %w", paused, err)
	}

	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
	return nil
}

func (p *lavalinkPlayer) Stop(ctx context.Context) error {
	player := p.client.link.Player(p.guildID)
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}

	p.mu.Lock()
	p.current = ""
	p.paused = false
	p.mu.Unlock()
	return nil
}

func (p *lavalinkPlayer) Destroy(ctx context.Context) error {
	p.mu.Lock()
	p.current = ""
	p.paused = false
	p.connected = false
	p.mu.Unlock()

	p.client.forgetPlayer(p)
	p.client.clearVoiceBuffer(p.guildID)
	return p.client.leaveChannel(ctx, p.guildID)
}

func (p *lavalinkPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != ""
}

func (p *lavalinkPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != "" && p.paused
}

func (p *lavalinkPlayer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// trackEnded clears the current track if the node reports it finished.
func (p *lavalinkPlayer) trackEnded(encoded string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == encoded {
		p.current = ""
		p.paused = false
	}
}

func (p *lavalinkPlayer) setConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

// Ensure the Lavalink types implement the node ports.
var (
	_ ports.NodeClient   = (*LavalinkClient)(nil)
	_ ports.PlayerHandle = (*lavalinkPlayer)(nil)
)
