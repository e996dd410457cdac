// Package events publishes shared articles as CloudEvents to Google Cloud Pub/Sub.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	pb "cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/libops/articlebot/internal/gcp"
	"github.com/libops/articlebot/internal/metrics"
)

// SenderConfig holds configuration for the Pub/Sub sender.
type SenderConfig struct {
	ProjectID      string
	TopicID        string
	OrderingKey    string        // empty disables ordering
	TopicRetention time.Duration // zero keeps the service default
}

// PubSubSender publishes articles through one long-lived client and publisher.
// It is safe for concurrent use.
type PubSubSender struct {
	client      *pubsub.Client
	publisher   *pubsub.Publisher
	breaker     *gobreaker.CircuitBreaker[string]
	topicPath   string
	orderingKey string
	retention   time.Duration

	topicMu    sync.Mutex
	topicReady atomic.Bool
}

// NewPubSubSender creates a sender for the configured topic. The topic itself
// is not touched until EnsureTopic or the first Publish.
func NewPubSubSender(ctx context.Context, cfg SenderConfig, opts ...option.ClientOption) (*PubSubSender, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if cfg.TopicID == "" {
		return nil, fmt.Errorf("topic_id is required")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, &Error{Kind: KindAuth, Op: "create pubsub client", Err: err}
	}

	topicPath := gcp.TopicPath(cfg.ProjectID, cfg.TopicID)
	publisher := client.Publisher(topicPath)
	if cfg.OrderingKey != "" {
		publisher.EnableMessageOrdering = true
	}

	return &PubSubSender{
		client:      client,
		publisher:   publisher,
		breaker:     newPublishBreaker(cfg.TopicID),
		topicPath:   topicPath,
		orderingKey: cfg.OrderingKey,
		retention:   cfg.TopicRetention,
	}, nil
}

// TopicPath returns the fully qualified topic name.
func (s *PubSubSender) TopicPath() string {
	return s.topicPath
}

// EnsureTopic creates the topic if it doesn't already exist. Concurrent callers
// wait for a single check; once it succeeds later calls return immediately.
// A failed attempt is retried by the next caller.
func (s *PubSubSender) EnsureTopic(ctx context.Context) error {
	if s.topicReady.Load() {
		return nil
	}

	s.topicMu.Lock()
	defer s.topicMu.Unlock()
	if s.topicReady.Load() {
		return nil
	}

	_, err := s.client.TopicAdminClient.GetTopic(ctx, &pb.GetTopicRequest{Topic: s.topicPath})
	switch status.Code(err) {
	case codes.OK:
	case codes.NotFound:
		if err := s.createTopic(ctx); err != nil {
			return err
		}
	default:
		return &Error{Kind: KindTopic, Op: "get topic", Err: err}
	}

	s.topicReady.Store(true)
	return nil
}

// createTopic treats AlreadyExists as success; another process may have won the race.
func (s *PubSubSender) createTopic(ctx context.Context) error {
	topic := &pb.Topic{Name: s.topicPath}
	if s.retention > 0 {
		topic.MessageRetentionDuration = durationpb.New(s.retention)
	}

	_, err := s.client.TopicAdminClient.CreateTopic(ctx, topic)
	switch status.Code(err) {
	case codes.OK:
		slog.Info("Created Pub/Sub topic", "topic", s.topicPath)
		metrics.RecordTopicCreated()
		return nil
	case codes.AlreadyExists:
		slog.Debug("Pub/Sub topic created concurrently", "topic", s.topicPath)
		return nil
	default:
		return &Error{Kind: KindTopic, Op: "create topic", Err: err}
	}
}

// Publish sends one article and blocks until the server acknowledges it,
// returning the server-assigned message ID.
func (s *PubSubSender) Publish(ctx context.Context, article Article, meta Metadata) (string, error) {
	if err := s.EnsureTopic(ctx); err != nil {
		return "", err
	}

	event, err := NewArticleEvent(article, meta)
	if err != nil {
		return "", &Error{Kind: KindPublish, Op: "build event", Err: err}
	}
	msg := toPubSubMessage(event)
	msg.OrderingKey = s.orderingKey

	messageID, err := s.breaker.Execute(func() (string, error) {
		id, err := s.publisher.Publish(ctx, msg).Get(ctx)
		if err != nil && s.orderingKey != "" {
			// An ordered publish failure pauses the key until resumed.
			s.publisher.ResumePublish(s.orderingKey)
		}
		return id, err
	})
	if err != nil {
		return "", &Error{Kind: KindPublish, Op: "publish", Err: err}
	}

	slog.DebugContext(ctx, "Published article", "event_id", event.ID(), "pubsub_message_id", messageID)
	return messageID, nil
}

// Close flushes pending messages and closes the client.
func (s *PubSubSender) Close() error {
	s.publisher.Stop()
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub client: %w", err)
	}
	return nil
}
