// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry their own exit code.
// Such errors have already been reported and are not printed again.
type ExitCoder interface {
	ExitCode() int
}

// Exit ends the process for err. Nil exits 0; an ExitCoder exits with
// its code silently; anything else is written to stderr as
// "error: err" and exits 1.
func Exit(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w unless it is nil or an ExitCoder and returns
// the exit code Exit would use.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if coder, ok := err.(ExitCoder); ok {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
