package events

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("deadline exceeded")

	t.Run("direct", func(t *testing.T) {
		err := &Error{Kind: KindTopic, Op: "get topic", Err: cause}
		assert.Equal(t, KindTopic, KindOf(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "topic: get topic: deadline exceeded", err.Error())
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("handling message: %w", &Error{Kind: KindReply, Op: "send", Err: cause})
		assert.Equal(t, KindReply, KindOf(err))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(cause))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(nil))
	})
}
