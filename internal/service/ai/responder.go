package ai

import (
	"context"

	"github.com/explainer-ai/backend/internal/metrics"
	"github.com/explainer-ai/backend/internal/model/chat"
)

// Responder is the answer capability consumed by HTTP handlers.
type Responder interface {
	// Answer returns the full reply for prompt given the prior conversation.
	Answer(ctx context.Context, history []chat.Message, prompt string, opts Options) (string, error)
	// Stream calls onDelta for every chunk and returns the concatenated reply.
	Stream(ctx context.Context, history []chat.Message, prompt string, opts Options, onDelta func(string) error) (string, error)
	// Available reports whether a real language model backs the responder.
	Available() bool
}

// Fallback answers without any model, mirroring the offline demo mode.
type Fallback struct{}

var _ Responder = Fallback{}

// Answer 返回离线模式下的固定回复。
func (Fallback) Answer(_ context.Context, _ []chat.Message, prompt string, _ Options) (string, error) {
	metrics.RecordLLMRequest("fallback", "ok")
	return DemoAnswer(prompt), nil
}

// Stream emits the offline reply as a single chunk.
func (f Fallback) Stream(ctx context.Context, history []chat.Message, prompt string, opts Options, onDelta func(string) error) (string, error) {
	answer, _ := f.Answer(ctx, history, prompt, opts)
	if err := onDelta(answer); err != nil {
		return "", err
	}
	return answer, nil
}

// Available is always false for the fallback.
func (Fallback) Available() bool { return false }
