// Package agent implements the LLM-backed stages that make up a pipeline.
// A stage is a fixed persona (description plus instruction list) bound to a
// chat client and, for tool-capable stages, a single tool.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/codeready-toolchain/herald/pkg/llm"
)

// Descriptor defines a stage persona. Descriptors are immutable values built
// once at startup.
type Descriptor struct {
	// ID is a stable snake_case key used in config and logs.
	ID          string
	Name        string
	Description string
	// Instructions may contain {today} (2006-01-02) and {long_date}
	// (January 02, 2006); both are rendered at invocation time.
	Instructions []string
	// Model overrides the client's default model when set.
	Model string
	// Tool names the tool bound to a ToolStage; empty for prompt-only stages.
	Tool string
}

// WithModel returns a copy of d using model.
func (d Descriptor) WithModel(model string) Descriptor {
	d.Model = model
	return d
}

// Stage is one invocable pipeline step.
type Stage interface {
	Descriptor() Descriptor
	// Invoke runs the stage on input and returns the model's final text.
	Invoke(ctx context.Context, input string) (string, error)
}

// Tool is a capability a ToolStage offers to the model.
type Tool interface {
	Definition() llm.ToolDefinition
	// Call executes the tool with JSON-encoded arguments.
	Call(ctx context.Context, args string) (string, error)
}

// Clock returns the current time. Stages and pipelines take one so dates in
// prompts are deterministic under test.
type Clock func() time.Time

// SystemPrompt renders the persona for the given time.
func (d Descriptor) SystemPrompt(now time.Time) string {
	r := strings.NewReplacer(
		"{today}", now.Format("2006-01-02"),
		"{long_date}", now.Format("January 02, 2006"),
	)

	var b strings.Builder
	b.WriteString(d.Description)
	if len(d.Instructions) > 0 {
		b.WriteString("\n\n")
		for i, line := range d.Instructions {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(r.Replace(line))
		}
	}
	return b.String()
}

type stageOptions struct {
	clock         Clock
	maxIterations int
}

// Option customizes a stage.
type Option func(*stageOptions)

// WithClock sets the clock used to render dated instructions.
func WithClock(c Clock) Option {
	return func(o *stageOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMaxIterations bounds the tool-calling loop of a ToolStage.
func WithMaxIterations(n int) Option {
	return func(o *stageOptions) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

func buildOptions(opts []Option) stageOptions {
	o := stageOptions{clock: time.Now, maxIterations: MaxIterations}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
