// Package version reports what build of herald is running.
//
// The commit comes from -ldflags when set, otherwise from the VCS stamp in
// debug.BuildInfo, otherwise "dev".
package version

import (
	"runtime/debug"
	"sync"
)

const (
	// AppName is used in user agents, MCP handshakes and health responses.
	AppName = "herald"

	// Version is the API version reported by /health.
	Version = "1.0.0"
)

// commit may be set at build time:
//
//	go build -ldflags "-X github.com/codeready-toolchain/herald/pkg/version.commit=$(git rev-parse HEAD)"
var commit string

// GitCommit is the short commit hash, or "dev".
var GitCommit = resolveCommit(commit, readBuildInfo)

var (
	modifiedOnce sync.Once
	modified     bool
)

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

func resolveCommit(override string, read func() (*debug.BuildInfo, bool)) string {
	if override != "" {
		return shorten(override)
	}
	info, ok := read()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return shorten(s.Value)
		}
	}
	return "dev"
}

func shorten(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}

// Dirty reports whether the binary was built from a modified working tree.
func Dirty() bool {
	modifiedOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.modified" {
				modified = s.Value == "true"
			}
		}
	})
	return modified
}

// Full returns "herald/<version>+<commit>".
func Full() string {
	return AppName + "/" + Version + "+" + GitCommit
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return AppName + "/" + Version
}
