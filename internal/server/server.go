// Package server wires the bot together and manages its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/libops/articlebot/internal/config"
	"github.com/libops/articlebot/internal/events"
	"github.com/libops/articlebot/internal/gateway"
	"github.com/libops/articlebot/internal/gcp"
	"github.com/libops/articlebot/internal/router"
)

// Server holds the long-lived clients shared by every message handler.
type Server struct {
	config     *config.Config
	reloader   *config.Reloader
	gateway    *gateway.Gateway
	sender     *events.PubSubSender
	limiter    *router.RateLimiter
	router     *router.Router
	httpServer *http.Server
}

// New creates a new Server instance with all dependencies initialized.
// Nothing connects to Discord until Start.
func New(ctx context.Context, reloader *config.Reloader) (*Server, error) {
	cfg := reloader.GetConfig()

	sender, err := setupEvents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(cfg.DiscordToken)
	if err != nil {
		_ = sender.Close()
		return nil, err
	}

	var limiter *router.RateLimiter
	if cfg.ChannelRateLimit > 0 {
		limiter = router.NewRateLimiter(rate.Limit(cfg.ChannelRateLimit), cfg.ChannelRateBurst)
		slog.Info("Per-channel article rate limit enabled", "limit", cfg.ChannelRateLimit, "burst", cfg.ChannelRateBurst)
	}

	rt := router.New(sender, gw, router.Options{
		PublishTimeout: cfg.PublishTimeout,
		Limiter:        limiter,
	})

	reloader.OnTokenChange(func(newToken string) {
		if err := gw.Reconnect(newToken); err != nil {
			slog.Error("Failed to reconnect with rotated Discord token", "err", err)
		}
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      NewOpsHandler(gw.Ready),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Article forwarding configured",
		"topic", sender.TopicPath(),
		"ordering_key_set", cfg.OrderingKey != "",
		"publish_timeout", cfg.PublishTimeout)

	return &Server{
		config:     cfg,
		reloader:   reloader,
		gateway:    gw,
		sender:     sender,
		limiter:    limiter,
		router:     rt,
		httpServer: httpServer,
	}, nil
}

// Start connects to Discord and serves the ops endpoints until Shutdown.
func (s *Server) Start() error {
	if err := s.reloader.Start(context.Background()); err != nil {
		slog.Warn("Config reloader disabled, token rotation requires a restart", "error", err)
	}

	if err := s.gateway.Open(s.router); err != nil {
		return err
	}

	slog.Info("Starting ops server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting chat events, then flushes pending publishes.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Starting graceful shutdown")

	if err := s.reloader.Stop(); err != nil {
		slog.Error("Error stopping config reloader", "error", err)
	}

	if err := s.gateway.Close(); err != nil {
		slog.Error("Error closing Discord session", "error", err)
	} else {
		slog.Info("Discord session closed")
	}

	if s.limiter != nil {
		s.limiter.Stop()
	}

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
		errs = append(errs, fmt.Errorf("could not stop ops server gracefully: %w", err))
	}

	if err := s.sender.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	slog.Info("Server stopped gracefully")
	return nil
}

// setupEvents resolves credentials and builds the Pub/Sub sender. The topic is
// provisioned eagerly, but a failure here only defers it to the first article.
func setupEvents(ctx context.Context, cfg *config.Config) (*events.PubSubSender, error) {
	creds, err := gcp.ResolveCredentials(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, &events.Error{Kind: events.KindAuth, Op: "resolve credentials", Err: err}
	}

	sender, err := events.NewPubSubSender(ctx, events.SenderConfig{
		ProjectID:      creds.ProjectID,
		TopicID:        cfg.PubSubTopic,
		OrderingKey:    cfg.OrderingKey,
		TopicRetention: cfg.TopicRetention,
	}, creds.Options...)
	if err != nil {
		return nil, err
	}

	ensureCtx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout)
	defer cancel()
	if err := sender.EnsureTopic(ensureCtx); err != nil {
		slog.Warn("Pub/Sub topic not ready, will retry on first article", "topic", sender.TopicPath(), "error", err)
	}

	return sender, nil
}
