package slack

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

// resultPreviewLength caps the delivered message excerpt in a success notification.
const resultPreviewLength = 600

var statusEmoji = map[string]string{
	"completed": ":white_check_mark:",
	"failed":    ":x:",
	"cancelled": ":no_entry_sign:",
}

var statusLabel = map[string]string{
	"completed": "Run Complete",
	"failed":    "Run Failed",
	"cancelled": "Run Cancelled",
}

func executionURL(executionID, dashboardURL string) string {
	return fmt.Sprintf("%s/executions/%s", strings.TrimRight(dashboardURL, "/"), executionID)
}

// BuildTerminalMessage creates Block Kit blocks for a finished execution.
func BuildTerminalMessage(input ExecutionNotification, dashboardURL string) []goslack.Block {
	emoji := statusEmoji[input.Status]
	if emoji == "" {
		emoji = ":question:"
	}
	label := statusLabel[input.Status]
	if label == "" {
		label = "Run " + input.Status
	}

	agent := input.AgentName
	if agent == "" {
		agent = input.AgentID
	}

	headerText := fmt.Sprintf("%s *%s*: %s", emoji, label, agent)
	var details []string
	details = append(details, fmt.Sprintf("*Execution:* `%s`", input.ExecutionID))
	if input.Source != "" {
		details = append(details, fmt.Sprintf("*Trigger:* %s", input.Source))
	}
	if input.Duration > 0 {
		details = append(details, fmt.Sprintf("*Duration:* %s", input.Duration.Round(time.Second)))
	}

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		),
		goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, strings.Join(details, "  |  "), false, false),
		),
	}

	var body string
	switch {
	case input.Status == "completed" && input.Result != "":
		body = truncateRunes(input.Result, resultPreviewLength)
	case input.Error != "":
		body = fmt.Sprintf("*Error:*\n%s", truncateForSlack(input.Error))
	}
	if body != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, body, false, false),
			nil, nil,
		))
	}

	if dashboardURL != "" {
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Execution", false, false))
		btn.URL = executionURL(input.ExecutionID, dashboardURL)
		blocks = append(blocks, goslack.NewActionBlock("", btn))
	}

	return blocks
}

// fallbackText is the plain notification text for a terminal message.
func fallbackText(input ExecutionNotification) string {
	agent := input.AgentName
	if agent == "" {
		agent = input.AgentID
	}
	return fmt.Sprintf("%s run %s: %s", agent, input.ExecutionID, input.Status)
}

func truncateForSlack(text string) string {
	if utf8.RuneCountInString(text) <= maxBlockTextLength {
		return text
	}
	return truncateRunes(text, maxBlockTextLength) + "\n\n_... (truncated)_"
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "…"
}
