// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixelwarden/pixelwarden/channel"
	"github.com/pixelwarden/pixelwarden/lib/clock"
	"github.com/pixelwarden/pixelwarden/lib/config"
	"github.com/pixelwarden/pixelwarden/notpx"
	"github.com/pixelwarden/pixelwarden/painter"
)

// gameAccount is the part of notpx.Client a worker calls directly.
type gameAccount interface {
	Me(ctx context.Context) (*notpx.User, error)
	Status(ctx context.Context) (*notpx.MiningStatus, error)
}

type templateSource interface {
	SelectTemplate(ctx context.Context) (painter.Template, error)
}

type templatePainter interface {
	Paint(ctx context.Context, template painter.Template, charges int) (painter.Result, error)
}

// sessionPool is the part of channel.Manager a worker joins.
type sessionPool interface {
	AddSession(credentials channel.Credentials) (*channel.Session, error)
	WaitSynced(ctx context.Context) error
}

// worker plays one account: it joins the shared channel pool once and
// then paints its template every iteration.
type worker struct {
	game        gameAccount
	templates   templateSource
	painter     templatePainter // nil when painting is disabled
	pool        sessionPool
	credentials channel.Credentials
	schedule    config.ScheduleConfig
	syncTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	joined bool
}

// run loops until ctx is cancelled. Iteration failures are logged and
// followed by the cooldown; they never end the loop.
func (w *worker) run(ctx context.Context) error {
	delay := randomDuration(w.schedule.StartDelay)
	w.logger.Info("account starting", "delay", delay.Round(time.Second))
	if err := clock.Sleep(ctx, w.clock, delay); err != nil {
		return nil
	}

	for {
		if pause := nightSleep(w.clock.Now(), w.schedule.Night); pause > 0 {
			w.logger.Info("night pause", "duration", pause.Round(time.Second))
			if err := clock.Sleep(ctx, w.clock, pause); err != nil {
				return nil
			}
		}

		err := w.iteration(ctx)
		if ctx.Err() != nil {
			return nil
		}
		pause := randomDuration(w.schedule.IterationSleep)
		if err != nil {
			w.logger.Error("iteration failed", "error", err)
			pause = w.schedule.Cooldown
		}
		w.logger.Debug("sleeping", "duration", pause.Round(time.Second))
		if err := clock.Sleep(ctx, w.clock, pause); err != nil {
			return nil
		}
	}
}

// iteration performs one status, template, sync and paint round.
func (w *worker) iteration(ctx context.Context) error {
	status, err := w.game.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetching status: %w", err)
	}
	w.logger.Info("status",
		"charges", status.Charges,
		"max_charges", status.MaxCharges,
		"balance", status.UserBalance,
		"league", status.League,
	)

	template, err := w.templates.SelectTemplate(ctx)
	if err != nil {
		return fmt.Errorf("selecting template: %w", err)
	}

	if err := w.join(ctx); err != nil {
		return err
	}

	syncCtx, cancel := context.WithTimeout(ctx, w.syncTimeout)
	err = w.pool.WaitSynced(syncCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("canvas not synced after %s", w.syncTimeout)
		}
		return fmt.Errorf("waiting for canvas: %w", err)
	}

	if w.painter == nil {
		return nil
	}
	if status.Charges <= 0 {
		w.logger.Info("no charges to spend")
		return nil
	}
	result, err := w.painter.Paint(ctx, template, status.Charges)
	if err != nil {
		return fmt.Errorf("painting template %d: %w", template.ID, err)
	}
	w.logger.Info("painted",
		"template", result.Template.ID,
		"pixels", result.Painted,
		"charges_left", result.ChargesLeft,
		"balance", result.Balance,
	)
	return nil
}

// join adds the account to the channel pool on the first iteration. An
// account without a stored channel token takes the one its profile
// carries; when that lookup fails the manager fetches a token itself.
func (w *worker) join(ctx context.Context) error {
	if w.joined {
		return nil
	}
	credentials := w.credentials
	if credentials.Token == "" {
		user, err := w.game.Me(ctx)
		if err != nil {
			w.logger.Warn("profile lookup failed", "error", err)
		} else {
			credentials.Token = user.WebsocketToken
		}
	}
	if _, err := w.pool.AddSession(credentials); err != nil {
		return fmt.Errorf("joining channel pool: %w", err)
	}
	w.joined = true
	return nil
}

// channelSupervisor is the part of channel.Manager the supervisor
// restarts.
type channelSupervisor interface {
	Done() <-chan struct{}
	Err() error
	Restart() error
}

// supervise restarts the channel manager after the cooldown whenever
// it stops on an error, until ctx is cancelled or the manager is
// stopped deliberately.
func supervise(ctx context.Context, manager channelSupervisor, cooldown time.Duration, clk clock.Clock, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-manager.Done():
		}
		if ctx.Err() != nil {
			return nil
		}
		cause := manager.Err()
		if cause == nil {
			return nil
		}
		logger.Warn("channel stopped, restarting after cooldown", "error", cause, "cooldown", cooldown)
		if err := clock.Sleep(ctx, clk, cooldown); err != nil {
			return nil
		}
		if err := manager.Restart(); err != nil {
			logger.Error("channel restart failed", "error", err)
		}
	}
}
