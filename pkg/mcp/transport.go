package mcp

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TransportType selects how the client reaches the MCP server.
type TransportType string

const (
	TransportStdio TransportType = "stdio"
	TransportHTTP  TransportType = "http"
)

// TransportConfig describes a single MCP server endpoint.
type TransportConfig struct {
	Type TransportType

	// stdio
	Command string
	Args    []string
	Env     map[string]string

	// http
	URL         string
	BearerToken string
	Timeout     time.Duration
}

// NewTransport builds an SDK transport from cfg.
func NewTransport(cfg TransportConfig) (mcpsdk.Transport, error) {
	switch cfg.Type {
	case TransportStdio, "":
		if cfg.Command == "" {
			return nil, fmt.Errorf("stdio transport requires command")
		}
		cmd := exec.Command(cfg.Command, cfg.Args...)
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
		return &mcpsdk.CommandTransport{Command: cmd}, nil

	case TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http transport requires url")
		}
		transport := &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
		if cfg.BearerToken != "" || cfg.Timeout > 0 {
			transport.HTTPClient = httpClient(cfg)
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}

func httpClient(cfg TransportConfig) *http.Client {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.BearerToken != "" {
		client.Transport = &bearerTokenTransport{
			base:  http.DefaultTransport,
			token: cfg.BearerToken,
		}
	}
	return client
}

type bearerTokenTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}
