package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAgentNotFound indicates the agent id is not configured.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentDisabled indicates the agent is configured but disabled.
	ErrAgentDisabled = errors.New("agent disabled")

	// ErrUnknownPipeline indicates a configured agent has no pipeline behind it.
	ErrUnknownPipeline = errors.New("no pipeline registered for agent")
)

// RequirementsError is returned when an agent's credentials are missing.
type RequirementsError struct {
	AgentID string
	Missing []string
}

func (e *RequirementsError) Error() string {
	return fmt.Sprintf("agent requirements not met: %s", strings.Join(e.Missing, ", "))
}

// ValidationError is returned when run parameters are rejected.
type ValidationError struct {
	AgentID string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameters for %s: %v", e.AgentID, e.Err)
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}
