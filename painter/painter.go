// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package painter

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/clock"
	"github.com/pixelwarden/pixelwarden/lib/pixel"
	"github.com/pixelwarden/pixelwarden/lib/retry"
)

// Client is the game API surface the painter needs.
type Client interface {
	// TemplateImage downloads an encoded template bitmap.
	TemplateImage(ctx context.Context, url string) ([]byte, error)
	// Repaint spends one charge and returns the balance afterwards.
	Repaint(ctx context.Context, pixelID int, color string) (float64, error)
}

// Selector picks templates.
type Selector interface {
	SelectTemplate(ctx context.Context) (Template, error)
	// ReplaceTemplate returns a template other than rejected.
	ReplaceTemplate(ctx context.Context, rejected Template) (Template, error)
}

// Config holds configuration for creating a Painter.
type Config struct {
	Client Client
	Raster *canvas.Raster
	// Selector is consulted when a scan fails with ErrTemplate. If
	// nil, the same template is retried.
	Selector Selector

	// JitterMin and JitterMax bound the random pause after each
	// repaint.
	JitterMin time.Duration
	JitterMax time.Duration

	// MaxAttempts is the number of scans tried before Paint gives up.
	// Zero means 3.
	MaxAttempts int
	// RetryDelay is the pause between failed scans.
	RetryDelay time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Result summarizes a Paint call.
type Result struct {
	// Template is the template last painted; it differs from the
	// requested one when the painter switched templates.
	Template    Template
	Painted     int
	ChargesLeft int
	// Balance is the balance reported by the last repaint, or zero
	// when nothing was painted.
	Balance float64
}

// Painter paints templates for one account.
type Painter struct {
	client      Client
	raster      *canvas.Raster
	selector    Selector
	jitterMin   time.Duration
	jitterMax   time.Duration
	maxAttempts int
	retryDelay  time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// New creates a Painter.
func New(config Config) (*Painter, error) {
	if config.Client == nil {
		return nil, errors.New("painter: Client is required")
	}
	if config.Raster == nil {
		return nil, errors.New("painter: Raster is required")
	}
	if config.JitterMin < 0 || config.JitterMax < config.JitterMin {
		return nil, fmt.Errorf("painter: invalid jitter range [%v, %v]", config.JitterMin, config.JitterMax)
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Painter{
		client:      config.Client,
		raster:      config.Raster,
		selector:    config.Selector,
		jitterMin:   config.JitterMin,
		jitterMax:   config.JitterMax,
		maxAttempts: maxAttempts,
		retryDelay:  config.RetryDelay,
		clock:       clk,
		logger:      logger,
	}, nil
}

// Paint repaints mismatching pixels of template until charges run out
// or the template matches the mirror. A failed scan is restarted from
// the top; charges spent before the failure stay spent. When every
// attempt fails the last error is returned along with the partial
// result.
func (p *Painter) Paint(ctx context.Context, template Template, charges int) (Result, error) {
	result := Result{Template: template, ChargesLeft: charges}
	if charges <= 0 {
		return result, nil
	}

	replace := false
	_, err := retry.Do(ctx, retry.Policy{
		Attempts: p.maxAttempts,
		Delay:    p.retryDelay,
		Clock:    p.clock,
		Logger:   p.logger,
	}, "paint template", func(ctx context.Context) (struct{}, error) {
		if replace {
			// The flag stays set until a replacement arrives, so a
			// rejected template is never scanned again.
			replacement, err := p.selector.ReplaceTemplate(ctx, result.Template)
			if err != nil {
				return struct{}{}, fmt.Errorf("painter: replacing template %d: %w", result.Template.ID, err)
			}
			result.Template = replacement
			replace = false
		}
		err := p.scan(ctx, &result)
		if errors.Is(err, ErrTemplate) && p.selector != nil {
			replace = true
		}
		return struct{}{}, err
	})
	if err != nil {
		return result, fmt.Errorf("painter: template %d: %w", result.Template.ID, err)
	}

	p.logger.Info("template scan finished",
		"template_id", result.Template.ID,
		"painted", result.Painted,
		"charges_left", result.ChargesLeft,
	)
	return result, nil
}

// scan makes one row-major pass over the template.
func (p *Painter) scan(ctx context.Context, result *Result) error {
	template := result.Template
	if err := template.Validate(); err != nil {
		return err
	}
	bitmap, err := p.loadBitmap(ctx, template)
	if err != nil {
		return err
	}

	snapshot := p.raster.Snapshot()
	for ty := 0; ty < template.Size; ty++ {
		for tx := 0; tx < template.Size; tx++ {
			if result.ChargesLeft <= 0 {
				return nil
			}
			want := bitmap.NRGBAAt(tx, ty)
			if want.A == 0 {
				continue
			}
			x, y := template.X+tx, template.Y+ty
			if sameRGB(snapshot.At(x, y), want) {
				continue
			}
			id := pixel.XYToID(x, y)
			// The channel may have fixed the pixel since the snapshot.
			if live, ok := p.raster.Pixel(id); ok && sameRGB(live, want) {
				continue
			}

			if err := p.repaint(ctx, id, want, result); err != nil {
				return err
			}
			if err := clock.Sleep(ctx, p.clock, p.jitter()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Painter) repaint(ctx context.Context, id int, want color.NRGBA, result *Result) error {
	hex := pixel.RGBAToHex(want)
	balance, err := p.client.Repaint(ctx, id, hex)
	if err != nil {
		return err
	}
	result.ChargesLeft--
	result.Painted++
	result.Balance = balance

	if err := p.raster.SetPixel(id, hex); err != nil {
		return err
	}
	p.logger.Debug("painted pixel",
		"pixel_id", id,
		"color", hex,
		"balance", balance,
		"charges_left", result.ChargesLeft,
	)
	return nil
}

func (p *Painter) jitter() time.Duration {
	spread := p.jitterMax - p.jitterMin
	if spread <= 0 {
		return p.jitterMin
	}
	return p.jitterMin + rand.N(spread)
}

func sameRGB(a, b color.NRGBA) bool {
	return a.R == b.R && a.G == b.G && a.B == b.B
}
