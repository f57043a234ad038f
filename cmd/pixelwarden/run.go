// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/pixelwarden/pixelwarden/channel"
	"github.com/pixelwarden/pixelwarden/lib/accounts"
	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/checkpoint"
	"github.com/pixelwarden/pixelwarden/lib/clock"
	"github.com/pixelwarden/pixelwarden/lib/config"
	"github.com/pixelwarden/pixelwarden/lib/version"
	"github.com/pixelwarden/pixelwarden/notpx"
	"github.com/pixelwarden/pixelwarden/painter"
)

func runCommand() *command {
	var (
		flags   configFlags
		noPaint bool
	)
	return &command{
		name:    "run",
		summary: "Mirror the canvas and play every account",
		description: `Run connects the account pool to the canvas update channel, keeps the
local mirror in sync and paints each account's template with the charges
it has. Runs until interrupted. The mirror is checkpointed to disk when
checkpoints are enabled and restored from there on the next start.`,
		examples: []example{
			{description: "Run with a config file", command: "pixelwarden run --config pixelwarden.yaml"},
			{description: "Only mirror the canvas", command: "pixelwarden run --no-paint"},
		},
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.BoolVar(&noPaint, "no-paint", false, "keep the mirror in sync without painting")
			return flagSet
		},
		run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			if noPaint {
				cfg.Painter.Enabled = false
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAccounts(ctx, cfg, logger)
		},
	}
}

// runAccounts plays every account until ctx is cancelled.
func runAccounts(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("pixelwarden starting", "version", version.Info())

	accountList, err := accounts.Load(cfg.Accounts.Path, cfg.Accounts.Identity)
	if err != nil {
		return err
	}
	if len(accountList) == 0 {
		return errors.New("no accounts configured")
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	clk := clock.Real()
	raster := canvas.New()

	var saver *checkpoint.Saver
	if cfg.Checkpoint.Enabled {
		saver, err = openCheckpoint(cfg, raster, clk, logger)
		if err != nil {
			return err
		}
	}

	manager, err := channel.New(channel.Config{
		URL:               cfg.Endpoints.Websocket,
		Raster:            raster,
		Dialer:            channel.WebsocketDialer{HandshakeTimeout: cfg.Endpoints.RequestTimeout},
		RefreshInterval:   cfg.Channel.RefreshInterval,
		ExpiryMargin:      cfg.Channel.ExpiryMargin,
		ReconnectAttempts: cfg.Channel.ReconnectAttempts,
		ReconnectDelay:    cfg.Channel.ReconnectDelay,
		TokenAttempts:     cfg.Channel.TokenAttempts,
		ImageAttempts:     cfg.Channel.ImageAttempts,
		Clock:             clk,
		Logger:            logger.With("component", "channel"),
	})
	if err != nil {
		return err
	}
	defer manager.Stop()

	workers := make([]*worker, 0, len(accountList))
	for _, account := range accountList {
		w, err := newWorker(cfg, account, raster, manager, clk, logger)
		if err != nil {
			return fmt.Errorf("account %s: %w", account.SessionName, err)
		}
		workers = append(workers, w)
	}

	group, ctx := errgroup.WithContext(ctx)
	if saver != nil {
		group.Go(func() error {
			saver.Run(ctx)
			return nil
		})
	}
	group.Go(func() error {
		return supervise(ctx, manager, cfg.Schedule.Cooldown, clk, logger.With("component", "supervisor"))
	})
	for _, w := range workers {
		group.Go(func() error { return w.run(ctx) })
	}
	logger.Info("accounts running", "count", len(workers), "painting", cfg.Painter.Enabled)

	err = group.Wait()
	logger.Info("pixelwarden stopped")
	return err
}

// openCheckpoint creates the saver and warms raster from a fresh
// checkpoint. A corrupt checkpoint is logged and ignored; the next save
// replaces it.
func openCheckpoint(cfg *config.Config, raster *canvas.Raster, clk clock.Clock, logger *slog.Logger) (*checkpoint.Saver, error) {
	compression, err := checkpoint.ParseCompression(cfg.Checkpoint.Compression)
	if err != nil {
		return nil, err
	}
	saver, err := checkpoint.NewSaver(checkpoint.SaverConfig{
		Path:        cfg.Checkpoint.Path,
		Raster:      raster,
		Compression: compression,
		Interval:    cfg.Checkpoint.Interval,
		Clock:       clk,
		Logger:      logger.With("component", "checkpoint"),
	})
	if err != nil {
		return nil, err
	}

	info, restored, err := checkpoint.Restore(cfg.Checkpoint.Path, raster, cfg.Checkpoint.MaxAge, clk.Now())
	switch {
	case err != nil:
		logger.Warn("ignoring unreadable checkpoint", "path", cfg.Checkpoint.Path, "error", err)
	case restored:
		saver.MarkRestored(info.Digest)
		logger.Info("canvas restored from checkpoint",
			"path", cfg.Checkpoint.Path,
			"saved_at", info.SavedAt,
			"age", clk.Now().Sub(info.SavedAt).Round(time.Second),
		)
	case !info.SavedAt.IsZero():
		logger.Info("checkpoint too old, waiting for channel", "saved_at", info.SavedAt)
	}
	return saver, nil
}

// newWorker builds an account's client, template selector and painter.
func newWorker(cfg *config.Config, account accounts.Account, raster *canvas.Raster, manager *channel.Manager, clk clock.Clock, logger *slog.Logger) (*worker, error) {
	proxy, err := account.ProxyURL()
	if err != nil {
		return nil, err
	}
	logger = logger.With("account", account.SessionName)
	headers := account.Headers()

	client, err := notpx.NewClient(notpx.ClientConfig{
		APIURL:      cfg.Endpoints.API,
		ImageURL:    cfg.Endpoints.Image,
		HTTPClient:  notpx.NewHTTPClient(proxy, cfg.Endpoints.RequestTimeout),
		Header:      headers.API,
		ImageHeader: headers.Image,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	selector := notpx.NewTemplateSelector(client, logger)

	w := &worker{
		game:      client,
		templates: selector,
		pool:      manager,
		credentials: channel.Credentials{
			Name:          account.SessionName,
			Backend:       client,
			ChannelHeader: headers.Channel,
			Proxy:         proxy,
			Token:         account.WebsocketToken,
		},
		schedule:    cfg.Schedule,
		syncTimeout: cfg.Channel.SyncTimeout,
		clock:       clk,
		logger:      logger,
	}
	if cfg.Painter.Enabled {
		p, err := painter.New(painter.Config{
			Client:      client,
			Raster:      raster,
			Selector:    selector,
			JitterMin:   cfg.Painter.JitterMin,
			JitterMax:   cfg.Painter.JitterMax,
			MaxAttempts: cfg.Painter.MaxAttempts,
			RetryDelay:  cfg.Painter.RetryDelay,
			Clock:       clk,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		w.painter = p
	}
	return w, nil
}
