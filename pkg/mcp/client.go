// Package mcp connects to a single MCP (Model Context Protocol) server and
// invokes its tools. It backs the Firecrawl scraper.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/herald/pkg/version"
)

// ErrToolFailed wraps errors the server reported through the tool result.
var ErrToolFailed = errors.New("mcp tool returned an error")

// Client holds a lazily established session to one MCP server.
// Safe for concurrent use.
type Client struct {
	name         string
	newTransport func() (mcpsdk.Transport, error)

	mu      sync.Mutex
	session *mcpsdk.ClientSession

	logger *slog.Logger
}

// NewClient creates a client for the server described by cfg. No connection is
// made until the first call.
func NewClient(name string, cfg TransportConfig) *Client {
	return newClient(name, func() (mcpsdk.Transport, error) { return NewTransport(cfg) })
}

func newClient(name string, newTransport func() (mcpsdk.Transport, error)) *Client {
	return &Client{
		name:         name,
		newTransport: newTransport,
		logger:       slog.Default().With("component", "mcp-client", "server", name),
	}
}

// Connect establishes the session if it is not already up.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.sessionLocked(ctx)
	return err
}

func (c *Client) sessionLocked(ctx context.Context) (*mcpsdk.ClientSession, error) {
	if c.session != nil {
		return c.session, nil
	}

	transport, err := c.newTransport()
	if err != nil {
		return nil, fmt.Errorf("create transport for %q: %w", c.name, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)
	session, err := sdkClient.Connect(connectCtx, transport, nil)
	if err != nil {
		// Stdio transports own a child process that must not leak.
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("connect to %q: %w", c.name, err)
	}

	c.session = session
	c.logger.Info("MCP server connected")
	return session, nil
}

func (c *Client) dropSession(stale *mcpsdk.ClientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == stale && stale != nil {
		_ = stale.Close()
		c.session = nil
	}
}

// CallText invokes a tool and returns its text content. A transport failure
// triggers one reconnect and retry. A result flagged IsError is returned as
// ErrToolFailed carrying the server's message.
func (c *Client) CallText(ctx context.Context, tool string, args map[string]any) (string, error) {
	params := &mcpsdk.CallToolParams{Name: tool, Arguments: args}

	result, err := c.callOnce(ctx, params)
	if err != nil && shouldReconnect(err) {
		c.logger.Info("MCP call failed, reconnecting", "tool", tool, "error", err)
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		result, err = c.callOnce(ctx, params)
	}
	if err != nil {
		return "", fmt.Errorf("call %s.%s: %w", c.name, tool, err)
	}

	text := extractTextContent(result)
	if result.IsError {
		return "", fmt.Errorf("%w: %s.%s: %s", ErrToolFailed, c.name, tool, text)
	}
	return text, nil
}

func (c *Client) callOnce(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	c.mu.Lock()
	session, err := c.sessionLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	result, err := session.CallTool(callCtx, params)
	if err != nil && shouldReconnect(err) {
		c.dropSession(session)
	}
	return result, err
}

// Close ends the session, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
