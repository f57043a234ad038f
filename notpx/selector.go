// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package notpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pixelwarden/pixelwarden/painter"
)

// templatePageSize is how many public templates are considered when
// picking one at random.
const templatePageSize = 12

// TemplateSelector chooses the template an account paints. It keeps
// the account's current subscription when there is one, and otherwise
// subscribes to a random public template.
type TemplateSelector struct {
	client *Client
	logger *slog.Logger
	// intn picks an index in [0, n). Tests replace it.
	intn func(n int) int
}

// NewTemplateSelector returns a selector backed by client.
func NewTemplateSelector(client *Client, logger *slog.Logger) *TemplateSelector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateSelector{client: client, logger: logger, intn: rand.IntN}
}

// SelectTemplate returns the subscribed template, subscribing to a
// random one first if the account has none.
func (s *TemplateSelector) SelectTemplate(ctx context.Context) (painter.Template, error) {
	info, err := s.client.MyTemplate(ctx)
	if err == nil {
		return info.Template(), nil
	}
	if !IsNotFound(err) {
		return painter.Template{}, err
	}
	s.logger.Info("account has no template, choosing one")
	return s.subscribeRandom(ctx, 0)
}

// ReplaceTemplate subscribes to a random template other than rejected.
func (s *TemplateSelector) ReplaceTemplate(ctx context.Context, rejected painter.Template) (painter.Template, error) {
	s.logger.Info("replacing unusable template", "template_id", rejected.ID)
	return s.subscribeRandom(ctx, rejected.ID)
}

func (s *TemplateSelector) subscribeRandom(ctx context.Context, excluded int64) (painter.Template, error) {
	listed, err := s.client.ListTemplates(ctx, templatePageSize, 0)
	if err != nil {
		return painter.Template{}, err
	}
	candidates := make([]TemplateInfo, 0, len(listed))
	for _, info := range listed {
		if info.Identifier() != excluded {
			candidates = append(candidates, info)
		}
	}
	if len(candidates) == 0 {
		return painter.Template{}, errors.New("notpx: no templates available")
	}

	chosen := candidates[s.intn(len(candidates))]
	info, err := s.client.TemplateInfo(ctx, chosen.Identifier())
	if err != nil {
		return painter.Template{}, err
	}
	id := info.Identifier()
	if id == 0 {
		return painter.Template{}, fmt.Errorf("notpx: template %d detail has no id", chosen.Identifier())
	}
	if err := s.client.SubscribeTemplate(ctx, id); err != nil {
		return painter.Template{}, err
	}
	return info.Template(), nil
}
