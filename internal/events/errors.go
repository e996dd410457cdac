package events

import (
	"errors"
	"fmt"
)

// Kind classifies a failure on the message handling path.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindAuth    Kind = "auth"    // credential resolution or client construction
	KindTopic   Kind = "topic"   // topic existence check or creation
	KindPublish Kind = "publish" // encoding, transport, or acknowledgment
	KindReply   Kind = "reply"   // chat reply delivery
)

// Error carries the failure kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
