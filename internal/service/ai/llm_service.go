package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/explainer-ai/backend/internal/config"
	"github.com/explainer-ai/backend/internal/metrics"
	"github.com/explainer-ai/backend/internal/model/chat"
)

const defaultHistoryLimit = 10

// Service encapsulates LLM-backed answering over an eino chain.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
	stream       bool
}

var _ Responder = (*Service)(nil)

// NewResponder returns an LLM-backed responder when credentials are configured,
// and the offline fallback otherwise.
func NewResponder(ctx context.Context, cfg config.AIConfig) Responder {
	if !cfg.Enabled() {
		log.Println("[ai] Ark 凭证未配置，使用离线回复")
		return Fallback{}
	}

	svc, err := NewService(ctx, cfg)
	if err != nil {
		log.Printf("[ai] failed to initialize chat model, using offline replies: %v", err)
		return Fallback{}
	}
	log.Println("[ai] chat model initialized")
	return svc
}

// NewService creates a new AI service instance backed by the Ark chat model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel compiles the prompt chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, cfg config.AIConfig) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return &Service{
		chain:        runnable,
		historyLimit: limit,
		stream:       cfg.StreamResponse,
	}, nil
}

// Available 表示已接入真实模型。
func (s *Service) Available() bool { return true }

// Answer runs the chain once. Model failures degrade to the offline reply.
func (s *Service) Answer(ctx context.Context, history []chat.Message, userPrompt string, opts Options) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(history, userPrompt, opts))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[ai] chain invoke failed: %v", err)
		metrics.RecordLLMRequest("ark", "error")
		return DemoAnswer(userPrompt), nil
	}

	metrics.RecordLLMRequest("ark", "ok")
	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response.Content, nil
}

// Stream streams the chain output, or falls back to Answer when streaming is disabled.
func (s *Service) Stream(ctx context.Context, history []chat.Message, userPrompt string, opts Options, onDelta func(string) error) (string, error) {
	if !s.stream {
		answer, err := s.Answer(ctx, history, userPrompt, opts)
		if err != nil {
			return "", err
		}
		if err := onDelta(answer); err != nil {
			return "", err
		}
		return answer, nil
	}

	stream, err := s.chain.Stream(ctx, s.buildChainInput(history, userPrompt, opts))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[ai] chain stream failed: %v", err)
		metrics.RecordLLMRequest("ark", "error")
		answer := DemoAnswer(userPrompt)
		if err := onDelta(answer); err != nil {
			return "", err
		}
		return answer, nil
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			metrics.RecordLLMRequest("ark", "error")
			return "", fmt.Errorf("receive chunk: %w", recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			if err := onDelta(chunk.Content); err != nil {
				return "", err
			}
		}
	}

	if len(chunks) == 0 {
		metrics.RecordLLMRequest("ark", "ok")
		return "", nil
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		metrics.RecordLLMRequest("ark", "error")
		return "", fmt.Errorf("concat chunks: %w", err)
	}

	metrics.RecordLLMRequest("ark", "ok")
	return response.Content, nil
}

func (s *Service) buildChainInput(history []chat.Message, userPrompt string, opts Options) map[string]any {
	return map[string]any{
		"system":  buildSystemPrompt(opts),
		"history": s.buildHistoryMessages(history),
		"query":   userPrompt,
	}
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
