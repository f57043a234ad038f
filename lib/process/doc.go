// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint exit path: the one
// place that writes to stderr after the structured logger is gone and
// turns an error into a process exit code.
package process
