// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "log/slog"

// DiscardLogger returns a logger that drops every record. Components
// under test log at info level on normal paths; tests that do not
// inspect logs pass this to keep output readable.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
