package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_NilReceiver(_ *testing.T) {
	var s *Service
	s.NotifyExecutionCompleted(context.Background(), ExecutionNotification{ExecutionID: "exec-1", Status: "completed"})
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		assert.Nil(t, NewService(ServiceConfig{Token: "", Channel: "C123"}))
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		assert.Nil(t, NewService(ServiceConfig{Token: "xoxb-test", Channel: ""}))
	})

	t.Run("returns service when configured", func(t *testing.T) {
		assert.NotNil(t, NewService(ServiceConfig{Token: "xoxb-test", Channel: "C123"}))
	})
}

type slackAPI struct {
	mu    sync.Mutex
	forms []map[string]string
	fail  bool
}

func (a *slackAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())

		a.mu.Lock()
		a.forms = append(a.forms, map[string]string{
			"channel": r.PostForm.Get("channel"),
			"text":    r.PostForm.Get("text"),
			"blocks":  r.PostForm.Get("blocks"),
		})
		a.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if a.fail {
			fmt.Fprint(w, `{"ok":false,"error":"channel_not_found"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"channel":"C123","ts":"1717232400.000100"}`)
	}
}

func TestService_NotifyExecutionCompleted(t *testing.T) {
	api := &slackAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	svc := NewServiceWithClient(NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/"), "https://herald.example.com")
	svc.NotifyExecutionCompleted(context.Background(), ExecutionNotification{
		ExecutionID: "exec-9",
		AgentID:     "github-trending",
		Status:      "failed",
		Error:       "could not fetch GitHub repositories",
	})

	require.Len(t, api.forms, 1)
	form := api.forms[0]
	assert.Equal(t, "C123", form["channel"])
	assert.Equal(t, "github-trending run exec-9: failed", form["text"])
	assert.Contains(t, form["blocks"], "could not fetch GitHub repositories")
	assert.Contains(t, form["blocks"], "https://herald.example.com/executions/exec-9")
}

func TestService_NotifyExecutionCompletedFailOpen(t *testing.T) {
	api := &slackAPI{fail: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	svc := NewServiceWithClient(NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/"), "")
	svc.NotifyExecutionCompleted(context.Background(), ExecutionNotification{ExecutionID: "exec-1", Status: "completed"})

	assert.Len(t, api.forms, 1)
}
