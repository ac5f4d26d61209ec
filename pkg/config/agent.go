// Package config provides configuration management for herald: agents,
// scheduler jobs, backing services and the credentials they need.
package config

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// AgentConfig describes one runnable agent type. The id is the registry key.
type AgentConfig struct {
	// Human-readable name shown in agent listings
	Name string `yaml:"name,omitempty"`

	Description string `yaml:"description,omitempty"`

	// Run timeout; zero falls back to queue.default_timeout
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// Credentials this agent needs beyond the LLM key
	Requires []Requirement `yaml:"requires,omitempty"`

	// Parameters applied under the caller-supplied ones on every run
	DefaultParameters map[string]any `yaml:"default_parameters,omitempty"`

	// Nil means enabled
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the agent may be listed and run.
func (a *AgentConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Timeout returns the agent's run timeout, or fallback when none is set.
func (a *AgentConfig) Timeout(fallback time.Duration) time.Duration {
	if a.TimeoutSeconds > 0 {
		return time.Duration(a.TimeoutSeconds) * time.Second
	}
	return fallback
}

// Requirement names are compared as a set.
func (a *AgentConfig) requires(r Requirement) bool {
	return slices.Contains(a.Requires, r)
}

func (a *AgentConfig) clone() *AgentConfig {
	c := *a
	c.Requires = slices.Clone(a.Requires)
	c.DefaultParameters = maps.Clone(a.DefaultParameters)
	if a.Enabled != nil {
		enabled := *a.Enabled
		c.Enabled = &enabled
	}
	return &c
}

// AgentRegistry stores agent configurations in memory with thread-safe access
type AgentRegistry struct {
	agents map[string]*AgentConfig
	mu     sync.RWMutex
}

// NewAgentRegistry creates a new agent registry
func NewAgentRegistry(agents map[string]*AgentConfig) *AgentRegistry {
	copied := make(map[string]*AgentConfig, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentRegistry{
		agents: copied,
	}
}

// Get retrieves an agent configuration by id (thread-safe)
func (r *AgentRegistry) Get(id string) (*AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return agent.clone(), nil
}

// GetAll returns all agent configurations (thread-safe, returns copies)
func (r *AgentRegistry) GetAll() map[string]*AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*AgentConfig, len(r.agents))
	for k, v := range r.agents {
		result[k] = v.clone()
	}
	return result
}

// IDs returns the sorted agent ids.
func (r *AgentRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.agents))
}

// Has checks if an agent exists in the registry (thread-safe)
func (r *AgentRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.agents[id]
	return exists
}

// Len returns the number of agents in the registry (thread-safe)
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
