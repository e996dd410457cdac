// Package router classifies inbound chat messages and acts on them: article
// URLs are forwarded to Pub/Sub and acknowledged, pings are answered, and
// everything else is ignored.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/libops/articlebot/internal/events"
	"github.com/libops/articlebot/internal/metrics"
)

const (
	// ArticlePrefix marks a message as an article URL. Only the prefix is checked.
	ArticlePrefix = "http"
	// PingCommand is matched exactly, whitespace included.
	PingCommand = "!ping"

	ArticleReply = "OK"
	PingReply    = "Pong!"

	// DefaultPublishTimeout applies when Options.PublishTimeout is zero.
	DefaultPublishTimeout = 30 * time.Second
)

// Kind is the classification of an inbound message.
type Kind string

const (
	KindArticle Kind = "article"
	KindPing    Kind = "ping"
	KindIgnored Kind = "ignored"
)

// Message is one inbound chat message.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Timestamp time.Time
}

// Publisher forwards an article and returns the server-assigned message ID.
type Publisher interface {
	Publish(ctx context.Context, article events.Article, meta events.Metadata) (string, error)
}

// Replier posts a text reply to a chat channel.
type Replier interface {
	Reply(ctx context.Context, channelID, content string) error
}

// Options tune the router. The zero value is usable.
type Options struct {
	PublishTimeout time.Duration
	Limiter        *RateLimiter // nil disables rate limiting
}

// Router handles inbound messages. It holds no per-message state and is safe
// for concurrent use.
type Router struct {
	publisher      Publisher
	replier        Replier
	limiter        *RateLimiter
	publishTimeout time.Duration
}

// New creates a router.
func New(publisher Publisher, replier Replier, opts Options) *Router {
	timeout := opts.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Router{
		publisher:      publisher,
		replier:        replier,
		limiter:        opts.Limiter,
		publishTimeout: timeout,
	}
}

// IsArticleURL reports whether content starts with "http". It is case-sensitive
// and does no further URL validation.
func IsArticleURL(content string) bool {
	return strings.HasPrefix(content, ArticlePrefix)
}

// Classify decides what to do with a message.
func Classify(content string) Kind {
	switch {
	case IsArticleURL(content):
		return KindArticle
	case content == PingCommand:
		return KindPing
	default:
		return KindIgnored
	}
}

// Handle processes one message. Failures are logged and counted, never returned,
// so one bad message cannot affect the next.
func (r *Router) Handle(ctx context.Context, msg Message) {
	kind := Classify(msg.Content)
	metrics.RecordMessage(string(kind))

	var err error
	switch kind {
	case KindArticle:
		err = r.forwardArticle(ctx, msg)
	case KindPing:
		err = r.reply(ctx, msg.ChannelID, PingReply)
	case KindIgnored:
		return
	}

	if err != nil {
		errKind := events.KindOf(err)
		metrics.RecordHandlerError(string(errKind))
		slog.ErrorContext(ctx, "Failed to handle message",
			"classification", kind,
			"error_kind", errKind,
			"author_id", msg.AuthorID,
			"err", err)
	}
}

// forwardArticle publishes the message and acknowledges it in chat.
// Nothing is said in chat when publishing fails.
func (r *Router) forwardArticle(ctx context.Context, msg Message) error {
	if r.limiter != nil && !r.limiter.Allow(msg.ChannelID) {
		metrics.RecordRateLimited()
		slog.WarnContext(ctx, "Article rate limit exceeded for channel", "author_id", msg.AuthorID)
		return nil
	}

	publishCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.publisher.Publish(publishCtx, events.Article{URL: msg.Content}, events.Metadata{
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		AuthorID:  msg.AuthorID,
		Time:      msg.Timestamp,
	})
	metrics.RecordPublish(err == nil, time.Since(start).Seconds())
	if err != nil {
		if events.KindOf(err) == events.KindUnknown {
			err = &events.Error{Kind: events.KindPublish, Op: "publish", Err: err}
		}
		return fmt.Errorf("failed to forward article: %w", err)
	}

	slog.InfoContext(ctx, "Forwarded article", "elapsed", time.Since(start))
	return r.reply(ctx, msg.ChannelID, ArticleReply)
}

// reply is best-effort: the caller logs a failure and nothing retries it.
func (r *Router) reply(ctx context.Context, channelID, content string) error {
	err := r.replier.Reply(ctx, channelID, content)
	metrics.RecordReply(err == nil)
	if err != nil {
		return &events.Error{Kind: events.KindReply, Op: "send reply", Err: err}
	}
	return nil
}
