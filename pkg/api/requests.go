package api

// ExecuteAgentRequest is the HTTP request body for POST /agents/execute.
type ExecuteAgentRequest struct {
	AgentID    string         `json:"agent_id"`
	Parameters map[string]any `json:"parameters"`
	// AsyncExecution defaults to true.
	AsyncExecution *bool `json:"async_execution,omitempty"`
}

// NewsAgentRequest is the HTTP request body for POST /agents/news/execute.
type NewsAgentRequest struct {
	// Topics, when present, must hold between one and maxNewsTopics entries.
	Topics              []string `json:"topics,omitempty"`
	MaxArticlesPerTopic *int     `json:"max_articles_per_topic,omitempty"`
	EnableTelegram      *bool    `json:"enable_telegram,omitempty"`
}
