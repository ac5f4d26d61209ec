package llm

import (
	"context"
	"sync"
)

// ScriptedClient is a Client whose replies come from Handler. It records every
// request and is intended for tests of stages and pipelines.
type ScriptedClient struct {
	Handler func(req *Request) (*Response, error)

	mu       sync.Mutex
	requests []*Request
}

var _ Client = (*ScriptedClient)(nil)

// Chat records req and delegates to Handler.
func (c *ScriptedClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.Handler == nil {
		return &Response{}, nil
	}
	return c.Handler(req)
}

// Model returns a fixed name.
func (c *ScriptedClient) Model() string { return "scripted" }

// Requests returns the requests seen so far.
func (c *ScriptedClient) Requests() []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Request(nil), c.requests...)
}

// SystemPrompt returns the first system message of req.
func (r *Request) SystemPrompt() string {
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// LastUserMessage returns the content of the latest user message of req.
func (r *Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
