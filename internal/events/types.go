package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event naming follows CloudEvents conventions.
// Format: <reverse-dns>.<resource>.<action>.<version>
const (
	// Event source.
	EventSourceArticleBot = "io.libops.articlebot"

	// Article events.
	EventTypeArticleShared = "io.libops.article.shared.v1"
)

// Article is the published payload. It has exactly one field and carries
// the chat message text verbatim.
type Article struct {
	URL string `json:"article_url"`
}

// Metadata describes where an article came from. It travels as Pub/Sub
// attributes and never as part of the payload.
type Metadata struct {
	ChannelID string
	MessageID string
	AuthorID  string
	Time      time.Time
}

// EncodeArticle serializes an article as UTF-8 JSON. URLs are written
// without HTML escaping, so & < > stay literal.
func EncodeArticle(article Article) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(article); err != nil {
		return nil, fmt.Errorf("failed to marshal article: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
