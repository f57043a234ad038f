// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/pixelwarden/pixelwarden/lib/checkpoint"
	"github.com/pixelwarden/pixelwarden/lib/codec"
)

func checkpointCommand() *command {
	return &command{
		name:    "checkpoint",
		summary: "Inspect canvas checkpoints",
		subcommands: []*command{
			checkpointInspectCommand(),
		},
	}
}

func checkpointInspectCommand() *command {
	var header bool
	return &command{
		name:    "inspect",
		summary: "Verify a checkpoint and print its metadata",
		usage:   "pixelwarden checkpoint inspect [--header] <path>",
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.BoolVar(&header, "header", false, "also print the raw header in CBOR diagnostic notation")
			return flagSet
		},
		run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("inspect needs exactly one checkpoint path")
			}
			return inspectCheckpoint(os.Stdout, args[0], header, time.Now())
		},
	}
}

// inspectCheckpoint verifies the checkpoint at path and describes it.
// A corrupt file is reported with exit code 2 after its header, when
// readable, has been printed.
func inspectCheckpoint(w io.Writer, path string, header bool, now time.Time) error {
	if header {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		notation, _, err := codec.Diagnose(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(w, "header:      %s\n", notation)
	}

	_, info, err := checkpoint.Read(path)
	if err != nil {
		if errors.Is(err, checkpoint.ErrCorrupt) {
			fmt.Fprintf(w, "corrupt:     %v\n", err)
			return &exitError{code: 2}
		}
		return err
	}
	fmt.Fprintf(w, "saved at:    %s (%s ago)\n", info.SavedAt.Format(time.RFC3339), now.Sub(info.SavedAt).Round(time.Second))
	fmt.Fprintf(w, "compression: %s\n", info.Compression)
	fmt.Fprintf(w, "size:        %d bytes (%d stored)\n", info.Size, info.StoredSize)
	fmt.Fprintf(w, "digest:      %s\n", hex.EncodeToString(info.Digest[:]))
	return nil
}
