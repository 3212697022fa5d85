// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/fzft/go-relay/version.GitSHA1=$(git rev-parse HEAD) \
//	                   -X github.com/fzft/go-relay/version.GitDirty=$(git diff --no-ext-diff | wc -l) \
//	                   -X github.com/fzft/go-relay/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	Version   = "0.1.0"
	GitSHA1   = "unknown"
	GitDirty  = "0"
	BuildID   = "unknown"
	BuildDate = "unknown"
)

// String returns the version followed by git information when it is known.
func String() string {
	var b strings.Builder
	b.WriteString(Version)
	// Add git commit and working tree status when available
	if sha1Int, err := strconv.ParseUint(shortSHA(GitSHA1), 16, 64); err == nil && sha1Int != 0 {
		fmt.Fprintf(&b, " (git:%s", shortSHA(GitSHA1))
		if dirty, err := strconv.Atoi(strings.TrimSpace(GitDirty)); err == nil && dirty != 0 {
			b.WriteString("-dirty")
		}
		b.WriteString(")")
	}
	if BuildDate != "unknown" {
		fmt.Fprintf(&b, " built %s", BuildDate)
	}
	return b.String()
}

// BuildIDRaw concatenates every build variable.
func BuildIDRaw() string {
	return BuildID + BuildDate + GitSHA1 + GitDirty
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
