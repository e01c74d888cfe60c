// Package ai talks to remote chat-completion APIs. The rest of the system
// treats a Provider as a black box: at most one call per inbound user event,
// no streaming, failures surfaced as errors.
package ai

import (
	"context"
	"errors"
	"net"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	// Chat sends the ordered transcript and returns the assistant's text.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ErrTimeout marks a completion call that hit its fixed time ceiling, as
// opposed to any other client failure.
var ErrTimeout = errors.New("ai: request timed out")

// classify maps transport-level deadline errors to ErrTimeout and leaves
// everything else alone.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return err
}
