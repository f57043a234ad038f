// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/clock"
)

// SaverConfig holds configuration for creating a Saver.
type SaverConfig struct {
	Path        string
	Raster      *canvas.Raster
	Compression Compression
	// Interval is the pause between checkpoints.
	Interval time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Saver writes checkpoints of one raster.
type Saver struct {
	path        string
	raster      *canvas.Raster
	compression Compression
	interval    time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu         sync.Mutex
	lastDigest [32]byte
	written    bool
}

// NewSaver creates a Saver.
func NewSaver(config SaverConfig) (*Saver, error) {
	if config.Path == "" {
		return nil, errors.New("checkpoint: Path is required")
	}
	if config.Raster == nil {
		return nil, errors.New("checkpoint: Raster is required")
	}
	if config.Interval <= 0 {
		return nil, errors.New("checkpoint: Interval must be positive")
	}
	compression := config.Compression
	if compression == "" {
		compression = CompressionZstd
	}
	if _, err := ParseCompression(string(compression)); err != nil {
		return nil, err
	}
	saver := &Saver{
		path:        config.Path,
		raster:      config.Raster,
		compression: compression,
		interval:    config.Interval,
		clock:       config.Clock,
		logger:      config.Logger,
	}
	if saver.clock == nil {
		saver.clock = clock.Real()
	}
	if saver.logger == nil {
		saver.logger = slog.Default()
	}
	return saver, nil
}

// MarkRestored records digest as already on disk, so an unchanged
// mirror restored from a checkpoint is not written straight back.
func (s *Saver) MarkRestored(digest [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDigest = digest
	s.written = true
}

// Save writes a checkpoint of the raster's current contents. It
// reports false without writing when the contents match the last
// checkpoint.
func (s *Saver) Save() (Info, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := []byte(s.raster.Snapshot())
	digest := Digest(raw)
	if s.written && digest == s.lastDigest {
		return Info{}, false, nil
	}

	info, err := Write(s.path, raw, s.compression, s.clock.Now())
	if err != nil {
		return Info{}, false, err
	}
	s.lastDigest = digest
	s.written = true
	return info, true, nil
}

// Run saves every interval until ctx is done, then saves once more so
// the latest mirror survives shutdown. Failed saves are logged and
// retried on the next tick.
func (s *Saver) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.saveAndLog()
			return
		case <-ticker.C:
			s.saveAndLog()
		}
	}
}

func (s *Saver) saveAndLog() {
	info, written, err := s.Save()
	switch {
	case err != nil:
		s.logger.Warn("checkpoint failed", "path", s.path, "error", err)
	case written:
		s.logger.Debug("checkpoint written",
			"path", s.path,
			"compression", info.Compression,
			"stored_bytes", info.StoredSize,
		)
	}
}
