package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codeready-toolchain/herald/pkg/agent"
	"github.com/codeready-toolchain/herald/pkg/github"
	"github.com/codeready-toolchain/herald/pkg/llm"
	"github.com/codeready-toolchain/herald/pkg/market"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type reply func(req *llm.Request) (*llm.Response, error)

func text(s string) reply {
	return func(*llm.Request) (*llm.Response, error) { return &llm.Response{Content: s}, nil }
}

func fail(msg string) reply {
	return func(*llm.Request) (*llm.Response, error) { return nil, errors.New(msg) }
}

// stageRouter dispatches each request to the reply registered for the stage
// whose persona opens the system prompt, and counts calls per stage.
type stageRouter struct {
	t       *testing.T
	replies map[string]reply

	mu     sync.Mutex
	inputs map[string][]string
}

func newRouter(t *testing.T, replies map[string]reply) (*stageRouter, *llm.ScriptedClient) {
	r := &stageRouter{t: t, replies: replies, inputs: map[string][]string{}}
	descs := agent.Builtin()
	client := &llm.ScriptedClient{Handler: func(req *llm.Request) (*llm.Response, error) {
		sys := req.SystemPrompt()
		for id, d := range descs {
			if !strings.HasPrefix(sys, d.Description) {
				continue
			}
			r.mu.Lock()
			r.inputs[id] = append(r.inputs[id], req.LastUserMessage())
			r.mu.Unlock()
			fn, ok := r.replies[id]
			if !ok {
				t.Errorf("unexpected call to stage %s", id)
				return &llm.Response{}, nil
			}
			return fn(req)
		}
		t.Errorf("request for unknown stage: %.60s", sys)
		return &llm.Response{}, nil
	}}
	return r, client
}

func (r *stageRouter) calls(stageID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.inputs[stageID]...)
}

type fakeSender struct {
	configured bool
	err        error
	sent       []string
}

func (f *fakeSender) Configured() bool { return f.configured }

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

type deliveryLog struct{ outcomes []error }

func (d *deliveryLog) ObserveDelivery(_ string, err error) { d.outcomes = append(d.outcomes, err) }

type fakeGitHub struct {
	repos []github.Repository
	err   error
	opts  []github.SearchOptions
}

func (f *fakeGitHub) SearchRepositories(_ context.Context, opts github.SearchOptions) ([]github.Repository, error) {
	f.opts = append(f.opts, opts)
	return f.repos, f.err
}

type noQuotes struct{}

func (noQuotes) Quote(context.Context, string) (market.Quote, error) {
	return market.Quote{}, errors.New("offline")
}

func testDeps(client llm.Client, sender *fakeSender) Deps {
	return Deps{
		LLM:    client,
		Market: noQuotes{},
		Sender: sender,
		Clock:  func() time.Time { return testNow },
	}
}
