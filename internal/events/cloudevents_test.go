package events

import (
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticleEvent(t *testing.T) {
	sentAt := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	event, err := NewArticleEvent(Article{URL: "https://example.com/a"}, Metadata{
		ChannelID: "chan-1",
		MessageID: "msg-1",
		AuthorID:  "user-1",
		Time:      sentAt,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID())
	assert.Equal(t, EventSourceArticleBot, event.Source())
	assert.Equal(t, EventTypeArticleShared, event.Type())
	assert.Equal(t, "chan-1", event.Subject())
	assert.Equal(t, cloudevents.ApplicationJSON, event.DataContentType())
	assert.True(t, sentAt.Equal(event.Time()))
	assert.JSONEq(t, `{"article_url":"https://example.com/a"}`, string(event.Data()))
	assert.Equal(t, map[string]interface{}{
		extChatMessageID: "msg-1",
		extChatAuthorID:  "user-1",
	}, event.Extensions())
}

func TestNewArticleEvent_UniqueIDsAndDefaultTime(t *testing.T) {
	first, err := NewArticleEvent(Article{URL: "http://a"}, Metadata{})
	require.NoError(t, err)
	second, err := NewArticleEvent(Article{URL: "http://a"}, Metadata{})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.False(t, first.Time().IsZero())
	assert.Empty(t, first.Subject())
	assert.Empty(t, first.Extensions(), "empty metadata adds no extensions")
}

func TestToPubSubMessage(t *testing.T) {
	event, err := NewArticleEvent(Article{URL: "https://example.com/a"}, Metadata{
		ChannelID: "chan-1",
		MessageID: "msg-1",
		AuthorID:  "user-1",
	})
	require.NoError(t, err)

	msg := toPubSubMessage(event)

	assert.JSONEq(t, `{"article_url":"https://example.com/a"}`, string(msg.Data))
	assert.Empty(t, msg.OrderingKey)
	assert.Equal(t, "1.0", msg.Attributes["ce-specversion"])
	assert.Equal(t, event.ID(), msg.Attributes["ce-id"])
	assert.Equal(t, EventTypeArticleShared, msg.Attributes["ce-type"])
	assert.Equal(t, EventSourceArticleBot, msg.Attributes["ce-source"])
	assert.Equal(t, "chan-1", msg.Attributes["ce-subject"])
	assert.Equal(t, "application/json", msg.Attributes["ce-datacontenttype"])
	assert.Equal(t, "msg-1", msg.Attributes["ce-chatmessageid"])
	assert.Equal(t, "user-1", msg.Attributes["ce-chatauthorid"])
	assert.NotEmpty(t, msg.Attributes["ce-time"])
}
