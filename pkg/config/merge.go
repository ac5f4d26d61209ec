package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeAgents merges built-in and user-defined agent configurations.
// A user entry with a built-in id is merged over the built-in so a partial
// override (say, only timeout_seconds) keeps the remaining built-in fields.
// Unknown ids are added as new agents.
func mergeAgents(builtinAgents map[string]AgentConfig, userAgents map[string]AgentConfig) (map[string]*AgentConfig, error) {
	result := make(map[string]*AgentConfig, len(builtinAgents)+len(userAgents))

	for id, builtin := range builtinAgents {
		result[id] = builtin.clone()
	}

	for id, userAgent := range userAgents {
		agentCopy := userAgent.clone()
		base, exists := result[id]
		if !exists {
			result[id] = agentCopy
			continue
		}
		if err := mergo.Merge(base, agentCopy, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge agent %s: %w", id, err)
		}
	}

	for id, agent := range result {
		if agent.Name == "" {
			agent.Name = id
		}
	}
	return result, nil
}

// mergeSection overlays non-zero user values on a copy of defaults.
func mergeSection[T any](name string, defaults *T, user *T) (*T, error) {
	if user == nil {
		return defaults, nil
	}
	if err := mergo.Merge(defaults, user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge %s config: %w", name, err)
	}
	return defaults, nil
}
