// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/pixelwarden/pixelwarden/lib/process"
)

func main() {
	if err := rootCommand().Execute(os.Args[1:]); err != nil {
		process.Exit(err)
	}
}
