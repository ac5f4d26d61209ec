package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/herald/pkg/llm"
)

// MaxIterations bounds the tool-calling rounds of a ToolStage.
const MaxIterations = 4

const finalAnswerPrompt = "Tool budget exhausted. Answer now using only the information gathered so far, in the required format."

// ToolStage lets the model call one bound tool for up to MaxIterations rounds.
// A response without tool calls ends the loop. If the model still wants tools
// after the last round, one more call without tools forces a text answer.
type ToolStage struct {
	desc          Descriptor
	client        llm.Client
	tool          Tool
	clock         Clock
	maxIterations int
	logger        *slog.Logger
}

var _ Stage = (*ToolStage)(nil)

// NewToolStage binds desc and tool to client.
func NewToolStage(desc Descriptor, client llm.Client, tool Tool, opts ...Option) *ToolStage {
	o := buildOptions(opts)
	desc.Tool = tool.Definition().Name
	return &ToolStage{
		desc:          desc,
		client:        client,
		tool:          tool,
		clock:         o.clock,
		maxIterations: o.maxIterations,
		logger:        slog.Default().With("component", "agent", "stage", desc.ID),
	}
}

// Descriptor returns the stage persona.
func (s *ToolStage) Descriptor() Descriptor { return s.desc }

// loopState tracks tool usage across rounds.
type loopState struct {
	iteration  int
	toolCalls  int
	toolErrors int
}

// Invoke runs the tool-calling loop.
func (s *ToolStage) Invoke(ctx context.Context, input string) (string, error) {
	start := time.Now()
	def := s.tool.Definition()
	messages := []llm.Message{
		llm.SystemMessage(s.desc.SystemPrompt(s.clock())),
		llm.UserMessage(input),
	}
	state := &loopState{}

	for state.iteration = 1; state.iteration <= s.maxIterations; state.iteration++ {
		resp, err := s.client.Chat(ctx, &llm.Request{
			Model:    s.desc.Model,
			Messages: messages,
			Tools:    []llm.ToolDefinition{def},
		})
		if err != nil {
			return "", fmt.Errorf("%s: iteration %d: %w", s.desc.Name, state.iteration, err)
		}
		if len(resp.ToolCalls) == 0 {
			s.logFinished(start, state)
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result, err := s.execute(ctx, def.Name, call, state)
			if err != nil {
				return "", fmt.Errorf("%s: %w", s.desc.Name, err)
			}
			messages = append(messages, llm.ToolResultMessage(call.ID, result))
		}
	}

	s.logger.Info("Tool budget exhausted, forcing final answer",
		"iterations", s.maxIterations, "tool_calls", state.toolCalls)
	messages = append(messages, llm.UserMessage(finalAnswerPrompt))
	resp, err := s.client.Chat(ctx, &llm.Request{Model: s.desc.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("%s: final answer: %w", s.desc.Name, err)
	}
	s.logFinished(start, state)
	return resp.Content, nil
}

// execute runs one tool call. Tool failures become result text for the model;
// only cancellation of ctx is returned as an error.
func (s *ToolStage) execute(ctx context.Context, toolName string, call llm.ToolCall, state *loopState) (string, error) {
	state.toolCalls++
	if call.Name != toolName {
		state.toolErrors++
		return fmt.Sprintf("Error: unknown tool %q. The only available tool is %q.", call.Name, toolName), nil
	}

	result, err := s.tool.Call(ctx, call.Arguments)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		state.toolErrors++
		s.logger.Warn("Tool call failed", "tool", toolName, "iteration", state.iteration, "error", err)
		return "Error: " + err.Error(), nil
	}
	return result, nil
}

func (s *ToolStage) logFinished(start time.Time, state *loopState) {
	s.logger.Debug("Stage finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"tool_calls", state.toolCalls,
		"tool_errors", state.toolErrors)
}
