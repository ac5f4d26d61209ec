package e2e

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/codeready-toolchain/herald/pkg/agent"
	"github.com/codeready-toolchain/herald/pkg/llm"
)

// LLMScriptEntry defines a single scripted LLM response.
type LLMScriptEntry struct {
	// Response content (exactly one must be set)
	Text  string
	Error error

	// Test control
	BlockUntilCancelled bool            // Block Chat() until ctx is cancelled
	OnBlock             chan<- struct{} // Notified when Chat() enters its blocking path
}

// ScriptedLLMClient implements llm.Client with per-stage scripts. Each request
// is routed to a stage by matching the stage description that opens its
// system prompt. A stage's last entry repeats once its script is used up.
type ScriptedLLMClient struct {
	mu         sync.Mutex
	routes     map[string][]LLMScriptEntry // stage ID → script
	routeIndex map[string]int
	calls      map[string][]string // stage ID → user messages seen
	stages     map[string]agent.Descriptor
}

var _ llm.Client = (*ScriptedLLMClient)(nil)

// NewScriptedLLMClient creates a new ScriptedLLMClient.
func NewScriptedLLMClient() *ScriptedLLMClient {
	return &ScriptedLLMClient{
		routes:     make(map[string][]LLMScriptEntry),
		routeIndex: make(map[string]int),
		calls:      make(map[string][]string),
		stages:     agent.Builtin(),
	}
}

// AddRouted appends an entry to the script of stageID.
func (c *ScriptedLLMClient) AddRouted(stageID string, entry LLMScriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[stageID] = append(c.routes[stageID], entry)
}

// Chat implements llm.Client.
func (c *ScriptedLLMClient) Chat(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	stageID, entry, err := c.nextEntry(req)
	if err == nil {
		c.calls[stageID] = append(c.calls[stageID], req.LastUserMessage())
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if entry.BlockUntilCancelled {
		if entry.OnBlock != nil {
			entry.OnBlock <- struct{}{}
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if entry.Error != nil {
		return nil, entry.Error
	}
	return &llm.Response{Content: entry.Text, FinishReason: "stop", PromptTokens: 10, CompletionTokens: 5}, nil
}

// Model implements llm.Client.
func (c *ScriptedLLMClient) Model() string { return "scripted" }

// Calls returns the user messages sent to stageID so far.
func (c *ScriptedLLMClient) Calls(stageID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls[stageID]...)
}

func (c *ScriptedLLMClient) nextEntry(req *llm.Request) (string, LLMScriptEntry, error) {
	sys := req.SystemPrompt()
	for id, d := range c.stages {
		if !strings.HasPrefix(sys, d.Description) {
			continue
		}
		script := c.routes[id]
		if len(script) == 0 {
			return id, LLMScriptEntry{}, fmt.Errorf("no scripted response for stage %s", id)
		}
		i := c.routeIndex[id]
		if i < len(script)-1 {
			c.routeIndex[id] = i + 1
		}
		return id, script[i], nil
	}
	return "", LLMScriptEntry{}, fmt.Errorf("request for unknown stage: %.60s", sys)
}
