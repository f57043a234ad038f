// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for pixelwarden.
//
// Configuration is loaded from a single file specified by either the
// PIXELWARDEN_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. Running without a file is
// still possible: [Default] is a complete configuration on its own.
//
// Fields absent from the file keep their [Default] values. Durations
// are written the way time.ParseDuration reads them ("90s", "5m").
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${PIXELWARDEN_STATE}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Endpoints, Channel, Painter,
//     Schedule, Accounts, Checkpoint and Log sections
//   - [Default] -- returns a Config with every field set
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other pixelwarden packages.
package config
