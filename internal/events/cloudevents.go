package events

import (
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Extension attribute names; CloudEvents allows only lowercase alphanumerics.
const (
	extChatMessageID = "chatmessageid"
	extChatAuthorID  = "chatauthorid"
)

// NewArticleEvent wraps an article in a CloudEvent. The channel ID becomes the subject.
func NewArticleEvent(article Article, meta Metadata) (cloudevents.Event, error) {
	data, err := EncodeArticle(article)
	if err != nil {
		return cloudevents.Event{}, err
	}

	eventTime := meta.Time
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(EventSourceArticleBot)
	event.SetType(EventTypeArticleShared)
	event.SetTime(eventTime)
	if meta.ChannelID != "" {
		event.SetSubject(meta.ChannelID)
	}
	for name, value := range map[string]string{extChatMessageID: meta.MessageID, extChatAuthorID: meta.AuthorID} {
		if value == "" {
			continue
		}
		event.SetExtension(name, value)
	}
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return cloudevents.Event{}, fmt.Errorf("failed to set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("invalid event: %w", err)
	}

	return event, nil
}

// toPubSubMessage renders the event in CloudEvents binary mode: context
// attributes become ce- prefixed message attributes and the data is the body.
func toPubSubMessage(event cloudevents.Event) *pubsub.Message {
	attrs := map[string]string{
		"ce-specversion":     event.SpecVersion(),
		"ce-id":              event.ID(),
		"ce-type":            event.Type(),
		"ce-source":          event.Source(),
		"ce-time":            event.Time().UTC().Format(time.RFC3339Nano),
		"ce-datacontenttype": event.DataContentType(),
	}
	if subject := event.Subject(); subject != "" {
		attrs["ce-subject"] = subject
	}
	for name, value := range event.Extensions() {
		attrs["ce-"+name] = fmt.Sprint(value)
	}

	return &pubsub.Message{
		Data:       event.Data(),
		Attributes: attrs,
	}
}
