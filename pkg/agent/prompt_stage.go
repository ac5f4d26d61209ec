package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/herald/pkg/llm"
)

// PromptStage makes a single chat call: the persona is the system message and
// the input is the user message.
type PromptStage struct {
	desc   Descriptor
	client llm.Client
	clock  Clock
	logger *slog.Logger
}

var _ Stage = (*PromptStage)(nil)

// NewPromptStage binds desc to client.
func NewPromptStage(desc Descriptor, client llm.Client, opts ...Option) *PromptStage {
	o := buildOptions(opts)
	return &PromptStage{
		desc:   desc,
		client: client,
		clock:  o.clock,
		logger: slog.Default().With("component", "agent", "stage", desc.ID),
	}
}

// Descriptor returns the stage persona.
func (s *PromptStage) Descriptor() Descriptor { return s.desc }

// Invoke runs one completion.
func (s *PromptStage) Invoke(ctx context.Context, input string) (string, error) {
	start := time.Now()
	resp, err := s.client.Chat(ctx, &llm.Request{
		Model: s.desc.Model,
		Messages: []llm.Message{
			llm.SystemMessage(s.desc.SystemPrompt(s.clock())),
			llm.UserMessage(input),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.desc.Name, err)
	}

	s.logger.Debug("Stage finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"output_chars", len(resp.Content))
	return resp.Content, nil
}
