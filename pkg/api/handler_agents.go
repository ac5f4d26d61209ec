package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/pipeline"
)

// listAgentsHandler handles GET /agents.
func (s *Server) listAgentsHandler(c echo.Context) error {
	availableOnly, err := boolQuery(c, "available_only", true)
	if err != nil {
		return err
	}
	category := strings.ToLower(strings.TrimSpace(c.QueryParam("category")))

	agents := s.agentService.ListAgents(availableOnly)
	resp := AgentListResponse{Agents: make([]orchestrator.AgentInfo, 0, len(agents))}
	for _, a := range agents {
		if category != "" && a.Category != category {
			continue
		}
		resp.Agents = append(resp.Agents, a)
		if a.Available {
			resp.AvailableCount++
		}
	}
	resp.TotalCount = len(resp.Agents)
	return c.JSON(http.StatusOK, resp)
}

// getAgentHandler handles GET /agents/:id.
func (s *Server) getAgentHandler(c echo.Context) error {
	info, err := s.agentService.GetAgent(c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, info)
}

// executeAgentHandler handles POST /agents/execute.
func (s *Server) executeAgentHandler(c echo.Context) error {
	var req ExecuteAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	agentID := strings.ToLower(strings.TrimSpace(req.AgentID))
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id is required")
	}
	async := req.AsyncExecution == nil || *req.AsyncExecution
	return s.execute(c, agentID, req.Parameters, async)
}

// executeNewsHandler handles POST /agents/news/execute, a shorthand for the
// daily news agent.
func (s *Server) executeNewsHandler(c echo.Context) error {
	var req NewsAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	async, err := boolQuery(c, "async_execution", true)
	if err != nil {
		return err
	}
	params, err := newsParameters(req)
	if err != nil {
		return err
	}
	return s.execute(c, config.AgentDailyNews, params, async)
}

func newsParameters(req NewsAgentRequest) (map[string]any, error) {
	params := make(map[string]any)
	if req.Topics != nil {
		if len(req.Topics) == 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "topics list cannot be empty if provided")
		}
		if len(req.Topics) > pipeline.MaxTopics {
			return nil, echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("maximum %d topics allowed", pipeline.MaxTopics))
		}
		topics := make([]any, 0, len(req.Topics))
		for _, t := range req.Topics {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		if len(topics) == 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "topics must contain at least one non-blank topic")
		}
		params["topics"] = topics
	}
	if req.MaxArticlesPerTopic != nil {
		n := *req.MaxArticlesPerTopic
		if n < 1 || n > pipeline.MaxArticles {
			return nil, echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("max_articles_per_topic must be between 1 and %d", pipeline.MaxArticles))
		}
		params["max_articles_per_topic"] = n
	}
	if req.EnableTelegram != nil {
		params["send_telegram"] = *req.EnableTelegram
	}
	return params, nil
}

// execute submits the run. Async runs answer 202 with the pending record;
// sync runs block until the record is terminal and answer 200.
func (s *Server) execute(c echo.Context, agentID string, params map[string]any, async bool) error {
	ctx := c.Request().Context()
	if async {
		rec, err := s.agentService.Submit(ctx, agentID, params, execution.SourceAPI)
		if err != nil {
			return executeError(err)
		}
		return c.JSON(http.StatusAccepted, rec)
	}

	rec, err := s.agentService.RunToCompletion(ctx, agentID, params, execution.SourceAPI)
	if err != nil {
		if rec != nil && ctx.Err() != nil {
			// The caller stopped waiting; the run continues.
			return c.JSON(http.StatusAccepted, rec)
		}
		return executeError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// executeError treats an unknown agent as a bad request rather than a
// missing resource.
func executeError(err error) error {
	if errors.Is(err, orchestrator.ErrAgentNotFound) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return mapServiceError(err)
}

func boolQuery(c echo.Context, name string, def bool) (bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s: must be true or false", name))
	}
	return b, nil
}
