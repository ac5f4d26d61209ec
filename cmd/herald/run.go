package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/herald/pkg/execution"
)

func runCmd(configDir *string) *cobra.Command {
	var (
		rawParams  []string
		noTelegram bool
	)
	cmd := &cobra.Command{
		Use:   "run <agent-id>",
		Short: "Run one agent to completion and print its result",
		Example: `  herald run enhanced-daily-news --param topics=AI,Space --no-telegram
  herald run github-trending --param max_repos=5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}
			if noTelegram {
				params["send_telegram"] = false
			}
			return runAgent(cmd, *configDir, strings.ToLower(strings.TrimSpace(args[0])), params)
		},
	}
	cmd.Flags().StringArrayVarP(&rawParams, "param", "p", nil, "Agent parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&noTelegram, "no-telegram", false, "Skip Telegram delivery")
	return cmd
}

func runAgent(cmd *cobra.Command, configDir, agentID string, params map[string]any) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configDir)
	if err != nil {
		return err
	}
	defer a.close()

	a.pool.Start(ctx)
	defer a.pool.Stop()

	rec, err := a.service.RunToCompletion(ctx, agentID, params, execution.SourceCLI)
	if err != nil {
		return err
	}

	duration := 0.0
	if rec.DurationSeconds != nil {
		duration = *rec.DurationSeconds
	}
	printf(cmd, "execution %s: %s (%.1fs)\n", rec.ID, rec.Status, duration)
	if rec.Status != execution.StatusCompleted {
		return fmt.Errorf("agent %s %s: %s", agentID, rec.Status, rec.Error)
	}
	printf(cmd, "\n%s\n", rec.Result)
	return nil
}

// parseParams turns key=value pairs into agent parameters. Values that are
// valid JSON (numbers, booleans, arrays) are decoded, anything else is kept as
// a string.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			params[key] = decoded
		} else {
			params[key] = value
		}
	}
	return params, nil
}
