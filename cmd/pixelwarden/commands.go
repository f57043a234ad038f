// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/pixelwarden/pixelwarden/lib/config"
	"github.com/pixelwarden/pixelwarden/lib/version"
)

func rootCommand() *command {
	return &command{
		name:        "pixelwarden",
		description: "Pixelwarden mirrors the shared pixel canvas and paints templates with a pool of accounts.",
		subcommands: []*command{
			runCommand(),
			checkCommand(),
			sealCommand(),
			keygenCommand(),
			checkpointCommand(),
			versionCommand(),
		},
	}
}

// configFlags are the flags shared by commands that read the
// configuration file.
type configFlags struct {
	path      string
	logLevel  string
	logFormat string
}

func (f *configFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.path, "config", "c", "", "configuration file (default $"+config.EnvVar+")")
	flagSet.StringVar(&f.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flagSet.StringVar(&f.logFormat, "log-format", "", "override log.format (auto, text, json)")
}

// load reads and validates the configuration, applies the logging
// overrides and builds the logger.
func (f *configFlags) load() (*config.Config, *slog.Logger, error) {
	var cfg *config.Config
	var err error
	if f.path != "" {
		cfg, err = config.LoadFile(f.path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel(), cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func versionCommand() *command {
	var short bool
	return &command{
		name:    "version",
		summary: "Print version information",
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&short, "short", false, "print only the version number")
			return flagSet
		},
		run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if short {
				fmt.Fprintln(os.Stdout, version.Short())
				return nil
			}
			fmt.Fprintln(os.Stdout, version.Full())
			return nil
		},
	}
}
