package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr string
	}{
		{
			name:  "empty",
			pairs: nil,
			want:  map[string]any{},
		},
		{
			name:  "plain strings stay strings",
			pairs: []string{"topics=AI,Space"},
			want:  map[string]any{"topics": "AI,Space"},
		},
		{
			name:  "json values decoded",
			pairs: []string{"max_repos=5", "send_telegram=false", `topics=["AI","Space"]`},
			want: map[string]any{
				"max_repos":     float64(5),
				"send_telegram": false,
				"topics":        []any{"AI", "Space"},
			},
		},
		{
			name:  "value may contain equals sign",
			pairs: []string{"query=stars:>=100"},
			want:  map[string]any{"query": "stars:>=100"},
		},
		{
			name:    "missing separator",
			pairs:   []string{"topics"},
			wantErr: "expected key=value",
		},
		{
			name:    "empty key",
			pairs:   []string{"=x"},
			wantErr: "expected key=value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.pairs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewRootCmd(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "run", "agents"})

	flag := root.PersistentFlags().Lookup("config-dir")
	require.NotNil(t, flag)
	assert.NotNil(t, root.RunE)
}
