package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// TelegramServer records sendMessage calls made by the bot client.
type TelegramServer struct {
	*httptest.Server

	mu       sync.Mutex
	messages []string
	fail     bool
}

// NewTelegramServer starts a fake Bot API. It is closed on test cleanup.
func NewTelegramServer(t *testing.T) *TelegramServer {
	ts := &TelegramServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		ts.mu.Lock()
		defer ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if ts.fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
			return
		}
		ts.messages = append(ts.messages, r.PostForm.Get("text"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// Messages returns the delivered message parts.
func (ts *TelegramServer) Messages() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.messages...)
}

// FailDeliveries makes every subsequent send fail.
func (ts *TelegramServer) FailDeliveries() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.fail = true
}

// GitHubRepo is one search result served by GitHubServer.
type GitHubRepo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Stars    int    `json:"stargazers_count"`
	HTMLURL  string `json:"html_url"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// GitHubServer serves /search/repositories and records the queries it saw.
type GitHubServer struct {
	*httptest.Server

	mu      sync.Mutex
	queries []string
}

// NewGitHubServer starts a fake REST API returning repos for every search.
func NewGitHubServer(t *testing.T, repos ...GitHubRepo) *GitHubServer {
	gs := &GitHubServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		gs.mu.Lock()
		gs.queries = append(gs.queries, r.URL.Query().Get("q"))
		gs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": len(repos),
			"items":       repos,
		})
	})
	gs.Server = httptest.NewServer(mux)
	t.Cleanup(gs.Close)
	return gs
}

// Queries returns the q parameters received so far.
func (gs *GitHubServer) Queries() []string {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return append([]string(nil), gs.queries...)
}

func repo(owner, name string, stars int) GitHubRepo {
	r := GitHubRepo{
		Name:     name,
		FullName: owner + "/" + name,
		Stars:    stars,
		HTMLURL:  "https://github.com/" + owner + "/" + name,
	}
	r.Owner.Login = owner
	return r
}
