// Package gateway connects the bot to Discord and dispatches inbound messages.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/libops/articlebot/internal/logging"
	"github.com/libops/articlebot/internal/metrics"
	"github.com/libops/articlebot/internal/router"
)

// Intents requests guild and direct messages with their content.
const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// MessageHandler receives every inbound message not written by the bot itself.
type MessageHandler interface {
	Handle(ctx context.Context, msg router.Message)
}

// session is the part of *discordgo.Session the gateway drives.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Gateway owns the Discord session. Reconnect swaps the session in place, so
// callers keep a single *Gateway for the life of the process.
type Gateway struct {
	mu         sync.RWMutex
	session    session
	handler    MessageHandler
	ready      bool
	newSession func(token string) (session, error)
}

// New creates a gateway for the bot token. Nothing connects until Open.
func New(token string) (*Gateway, error) {
	g := &Gateway{newSession: newDiscordSession}
	s, err := g.newSession(token)
	if err != nil {
		return nil, err
	}
	g.session = s
	return g, nil
}

func newDiscordSession(token string) (session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Open registers the handlers and connects to the gateway.
func (g *Gateway) Open(handler MessageHandler) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.handler = handler
	return g.openLocked()
}

// openLocked binds the status handlers to the session they are registered
// on, so late events from a replaced session are ignored.
func (g *Gateway) openLocked() error {
	current := g.session
	current.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { g.onReady(current, r) })
	current.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) { g.onResumed(current) })
	current.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { g.onDisconnect(current) })
	current.AddHandler(g.onMessageCreate)

	if err := current.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Reconnect replaces the session with one using token. The old session is
// closed first so no message is delivered twice; if the new session cannot
// open, the old one is reopened.
func (g *Gateway) Reconnect(token string) error {
	s, err := g.newSession(token)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	old := g.session
	if err := old.Close(); err != nil {
		slog.Warn("Error closing previous discord session", "err", err)
	}

	g.session = s
	g.ready = false
	metrics.SetGatewayConnected(false)
	if err := g.openLocked(); err != nil {
		g.session = old
		if reopenErr := old.Open(); reopenErr != nil {
			slog.Error("Failed to reopen previous discord session", "err", reopenErr)
		}
		return err
	}

	slog.Info("Discord session reconnected with rotated token")
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ready = false
	metrics.SetGatewayConnected(false)
	return g.session.Close()
}

// Ready reports whether the current session has received READY or RESUMED
// since it last disconnected.
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

// Reply posts content to channelID.
func (g *Gateway) Reply(ctx context.Context, channelID, content string) error {
	g.mu.RLock()
	s := g.session
	g.mu.RUnlock()

	if _, err := s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// setReady records the connection state reported by from. It returns false
// when from is no longer the current session.
func (g *Gateway) setReady(from session, ready bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if from != g.session {
		return false
	}
	g.ready = ready
	metrics.SetGatewayConnected(ready)
	return true
}

func (g *Gateway) onReady(from session, r *discordgo.Ready) {
	if !g.setReady(from, true) {
		return
	}
	if r.User == nil {
		slog.Info("Connected to Discord")
		return
	}
	slog.Info("Connected to Discord", "user", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))
}

func (g *Gateway) onResumed(from session) {
	if g.setReady(from, true) {
		slog.Info("Discord session resumed")
	}
}

func (g *Gateway) onDisconnect(from session) {
	if g.setReady(from, false) {
		slog.Warn("Disconnected from Discord, waiting for reconnect")
	}
}

// onMessageCreate runs on its own goroutine per event.
func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	if isOwnMessage(s, m.Message) {
		metrics.RecordMessage("own")
		return
	}

	g.mu.RLock()
	handler := g.handler
	g.mu.RUnlock()
	if handler == nil {
		return
	}

	ctx := logging.WithMessage(context.Background(), m.ChannelID, m.ID)
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordHandlerError("panic")
			slog.ErrorContext(ctx, "Recovered from panic in message handler", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	handler.Handle(ctx, toMessage(m.Message))
}

func isOwnMessage(s *discordgo.Session, m *discordgo.Message) bool {
	if s == nil || s.State == nil {
		return false
	}
	s.State.RLock()
	defer s.State.RUnlock()
	return s.State.User != nil && m.Author.ID == s.State.User.ID
}

func toMessage(m *discordgo.Message) router.Message {
	return router.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}
