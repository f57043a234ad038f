// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/pixelwarden/pixelwarden/lib/canvas"
	"github.com/pixelwarden/pixelwarden/lib/codec"
	"github.com/pixelwarden/pixelwarden/lib/pixel"
)

// formatVersion is the header version written by this package.
const formatVersion = 1

// magic marks a checkpoint file.
const magic = "pixelwarden.checkpoint"

// maxPayloadSize bounds the decompressed size a header may claim.
const maxPayloadSize = 64 << 20

// digestKey is the BLAKE3 key for checkpoint digests: the ASCII
// domain name, zero-padded to 32 bytes.
var digestKey = [32]byte{
	'p', 'i', 'x', 'e', 'l', 'w', 'a', 'r', 'd', 'e', 'n', '.',
	'c', 'h', 'e', 'c', 'k', 'p', 'o', 'i', 'n', 't',
}

// ErrCorrupt reports a checkpoint file that exists but cannot be
// trusted: bad header, failed decompression, or digest mismatch.
var ErrCorrupt = errors.New("checkpoint: corrupt file")

// Info describes a stored checkpoint.
type Info struct {
	SavedAt     time.Time
	Compression Compression
	// Size is the raw buffer length; StoredSize the payload length
	// on disk.
	Size       int
	StoredSize int
	Digest     [32]byte
}

type header struct {
	Magic       string    `cbor:"magic"`
	Version     int       `cbor:"version"`
	Width       int       `cbor:"width"`
	Compression string    `cbor:"compression"`
	Size        int       `cbor:"size"`
	Digest      []byte    `cbor:"digest"`
	SavedAt     time.Time `cbor:"saved_at"`
}

// Digest returns the keyed BLAKE3 digest stored in checkpoint headers.
func Digest(raw []byte) [32]byte {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("checkpoint: " + err.Error())
	}
	hasher.Write(raw)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// Write atomically writes raw as a checkpoint. The file is written to
// a temporary path in the same directory, fsynced, and renamed into
// place; readers never see a partial file. The parent directory must
// exist.
func Write(path string, raw []byte, compression Compression, savedAt time.Time) (Info, error) {
	payload, used, err := compress(raw, compression)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		SavedAt:     savedAt.UTC(),
		Compression: used,
		Size:        len(raw),
		StoredSize:  len(payload),
		Digest:      Digest(raw),
	}

	var buffer bytes.Buffer
	encoder := codec.NewEncoder(&buffer)
	if err := encoder.Encode(header{
		Magic:       magic,
		Version:     formatVersion,
		Width:       pixel.Width,
		Compression: string(used),
		Size:        len(raw),
		Digest:      info.Digest[:],
		SavedAt:     info.SavedAt,
	}); err != nil {
		return Info{}, fmt.Errorf("checkpoint: encoding header: %w", err)
	}
	if err := encoder.Encode(payload); err != nil {
		return Info{}, fmt.Errorf("checkpoint: encoding payload: %w", err)
	}

	if err := writeAtomic(path, buffer.Bytes()); err != nil {
		return Info{}, err
	}
	return info, nil
}

func writeAtomic(path string, data []byte) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("checkpoint: creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("checkpoint: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("checkpoint: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("checkpoint: closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("checkpoint: renaming into place: %w", err)
	}

	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}
	return nil
}

// Read reads and verifies a checkpoint, returning the raw buffer. When
// the file does not exist the error wraps os.ErrNotExist; any other
// problem with the contents wraps ErrCorrupt.
func Read(path string) ([]byte, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, err
	}

	decoder := codec.NewDecoder(bytes.NewReader(data))
	var fileHeader header
	if err := decoder.Decode(&fileHeader); err != nil {
		return nil, Info{}, fmt.Errorf("%w: %s: header: %v", ErrCorrupt, path, err)
	}
	if err := fileHeader.check(); err != nil {
		return nil, Info{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	var payload []byte
	if err := decoder.Decode(&payload); err != nil {
		return nil, Info{}, fmt.Errorf("%w: %s: payload: %v", ErrCorrupt, path, err)
	}

	compression := Compression(fileHeader.Compression)
	raw, err := decompress(payload, compression, fileHeader.Size)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	info := Info{
		SavedAt:     fileHeader.SavedAt,
		Compression: compression,
		Size:        fileHeader.Size,
		StoredSize:  len(payload),
	}
	copy(info.Digest[:], fileHeader.Digest)
	if Digest(raw) != info.Digest {
		return nil, Info{}, fmt.Errorf("%w: %s: digest mismatch", ErrCorrupt, path)
	}
	return raw, info, nil
}

func (h header) check() error {
	switch {
	case h.Magic != magic:
		return fmt.Errorf("not a checkpoint file (magic %q)", h.Magic)
	case h.Version != formatVersion:
		return fmt.Errorf("unsupported version %d", h.Version)
	case h.Width != pixel.Width:
		return fmt.Errorf("canvas width %d, want %d", h.Width, pixel.Width)
	case h.Size < 0 || h.Size > maxPayloadSize:
		return fmt.Errorf("implausible size %d", h.Size)
	case len(h.Digest) != 32:
		return fmt.Errorf("digest is %d bytes, want 32", len(h.Digest))
	}
	if _, err := ParseCompression(h.Compression); err != nil {
		return err
	}
	return nil
}

// Load reads a checkpoint that is at most maxAge old at now. It returns
// false with no error when the file does not exist or is stale; a
// corrupt or unreadable file is an error, so callers can tell "nothing
// to load" from "something is wrong".
func Load(path string, maxAge time.Duration, now time.Time) ([]byte, Info, bool, error) {
	raw, info, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Info{}, false, nil
		}
		return nil, Info{}, false, err
	}
	if maxAge > 0 && now.Sub(info.SavedAt) > maxAge {
		return nil, info, false, nil
	}
	return raw, info, true, nil
}

// Restore warms raster from the checkpoint at path when one is fresh
// enough. It reports whether the raster was restored.
func Restore(path string, raster *canvas.Raster, maxAge time.Duration, now time.Time) (Info, bool, error) {
	raw, info, ok, err := Load(path, maxAge, now)
	if err != nil || !ok {
		return info, false, err
	}
	if err := raster.Restore(raw); err != nil {
		return info, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return info, true, nil
}
