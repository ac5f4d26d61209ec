package orchestrator

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/herald/pkg/config"
)

// AgentInfo describes an agent type and whether it can run right now.
type AgentInfo struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	Category            string         `json:"category"`
	Available           bool           `json:"available"`
	Enabled             bool           `json:"enabled"`
	RequirementsMet     bool           `json:"requirements_met"`
	MissingRequirements []string       `json:"missing_requirements"`
	DefaultParameters   map[string]any `json:"default_parameters"`
	TimeoutSeconds      int            `json:"timeout_seconds"`
}

// Category groups agents for listing filters. It is derived from the id.
func Category(agentID string) string {
	switch {
	case strings.Contains(agentID, "news"):
		return "news"
	case strings.Contains(agentID, "finance"):
		return "finance"
	case strings.Contains(agentID, "research"):
		return "research"
	default:
		return "general"
	}
}

// ListAgents returns every configured agent sorted by id. With availableOnly,
// agents that cannot run are left out.
func (s *Service) ListAgents(availableOnly bool) []AgentInfo {
	ids := s.cfg.AgentRegistry.IDs()
	agents := make([]AgentInfo, 0, len(ids))
	for _, id := range ids {
		info, err := s.GetAgent(id)
		if err != nil {
			continue
		}
		if availableOnly && !info.Available {
			continue
		}
		agents = append(agents, *info)
	}
	return agents
}

// GetAgent returns the agent's description and availability.
func (s *Service) GetAgent(agentID string) (*AgentInfo, error) {
	agentCfg, err := s.cfg.GetAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return s.agentInfo(agentID, agentCfg), nil
}

func (s *Service) agentInfo(id string, agentCfg *config.AgentConfig) *AgentInfo {
	missing := s.cfg.MissingRequirements(agentCfg)
	if missing == nil {
		missing = []string{}
	}
	if !s.pipelines.Has(id) {
		missing = append(missing, fmt.Sprintf("no pipeline implements agent %s", id))
	}
	params := agentCfg.DefaultParameters
	if params == nil {
		params = map[string]any{}
	}

	requirementsMet := len(missing) == 0
	return &AgentInfo{
		ID:                  id,
		Name:                agentCfg.Name,
		Description:         agentCfg.Description,
		Category:            Category(id),
		Available:           requirementsMet && agentCfg.IsEnabled(),
		Enabled:             agentCfg.IsEnabled(),
		RequirementsMet:     requirementsMet,
		MissingRequirements: missing,
		DefaultParameters:   params,
		TimeoutSeconds:      int(s.cfg.AgentTimeout(agentCfg).Seconds()),
	}
}
