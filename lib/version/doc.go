// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for the
// pixelwarden binary.
//
// Three package-level variables may be injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// When they are not injected, the commit and dirty state are read from
// the VCS stamp the go command embeds in module builds.
//
//	go build -ldflags "-X github.com/pixelwarden/pixelwarden/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/pixelwarden
package version
