// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// build is the resolved build description.
type build struct {
	commit string
	dirty  bool
	time   string
}

// resolve prefers the -ldflags values and falls back to the VCS
// stamp the go command embeds in binaries built inside a checkout.
func resolve() build {
	result := build{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if result.commit != "unknown" {
		return result
	}
	info, ok := readBuildInfo()
	if !ok {
		return result
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			result.commit = setting.Value
			if len(result.commit) > 12 {
				result.commit = result.commit[:12]
			}
		case "vcs.modified":
			result.dirty = setting.Value == "true"
		case "vcs.time":
			if result.time == "unknown" {
				result.time = setting.Value
			}
		}
	}
	return result
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	b := resolve()
	dirty := ""
	if b.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, b.commit, dirty, b.time)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Fields returns the build information as log attributes.
func Fields() []any {
	b := resolve()
	return []any{"version", Version, "commit", b.commit, "dirty", b.dirty, "go", runtime.Version()}
}

// Commit returns the git commit SHA, or "unknown".
func Commit() string {
	return resolve().commit
}
