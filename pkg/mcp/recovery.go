package mcp

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

const (
	// ConnectTimeout bounds transport start plus the initialize handshake.
	ConnectTimeout = 30 * time.Second

	// CallTimeout is the per-call deadline for tool invocations.
	CallTimeout = 90 * time.Second

	retryBackoff = 500 * time.Millisecond
)

var connectionErrors = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"connection closed",
	"no such host",
}

// shouldReconnect reports whether err looks like a dead transport, in which
// case one reconnect-and-retry is attempted. Timeouts and protocol errors are
// returned to the caller as-is.
func shouldReconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, e := range connectionErrors {
		if strings.Contains(msg, e) {
			return true
		}
	}
	return false
}
