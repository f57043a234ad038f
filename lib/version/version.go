// Copyright 2026 The Pixelwarden Authors
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
	GitCommit = ""

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version.
	Version = "0.1.0-dev"
)

// vcsStamp returns the commit and dirty flag, preferring the injected
// GitCommit over the embedded VCS stamp.
func vcsStamp() (commit string, dirty bool) {
	commit = GitCommit
	info, ok := debug.ReadBuildInfo()
	if !ok {
		if commit == "" {
			commit = "unknown"
		}
		return commit, false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "" {
				commit = setting.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	return commit, dirty
}

// Info returns a formatted version string suitable for version output.
func Info() string {
	commit, dirty := vcsStamp()
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}
