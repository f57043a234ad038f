// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// sampleHeader is shaped like an on-disk file header: cbor tags, a
// timestamp, and an optional field.
type sampleHeader struct {
	Version     int       `cbor:"version"`
	Compression string    `cbor:"compression,omitempty"`
	SavedAt     time.Time `cbor:"saved_at"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleHeader{
		Version:     1,
		Compression: "zstd",
		SavedAt:     time.Date(2026, 3, 1, 12, 30, 15, 123456789, time.UTC),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleHeader
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Version != original.Version || decoded.Compression != original.Compression {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.SavedAt.Equal(original.SavedAt) {
		t.Errorf("timestamp lost precision: got %v, want %v", decoded.SavedAt, original.SavedAt)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"width": 1000, "compression": "lz4", "version": 1}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	header := sampleHeader{Version: 1, SavedAt: time.Unix(1700000000, 0).UTC()}
	payload := []byte{0, 1, 2, 3, 0xFF}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	if err := encoder.Encode(header); err != nil {
		t.Fatalf("Encode header: %v", err)
	}
	if err := encoder.Encode(payload); err != nil {
		t.Fatalf("Encode payload: %v", err)
	}

	decoder := NewDecoder(&buffer)
	var gotHeader sampleHeader
	if err := decoder.Decode(&gotHeader); err != nil {
		t.Fatalf("Decode header: %v", err)
	}
	var gotPayload []byte
	if err := decoder.Decode(&gotPayload); err != nil {
		t.Fatalf("Decode payload: %v", err)
	}
	if gotHeader.Version != 1 || !gotHeader.SavedAt.Equal(header.SavedAt) {
		t.Errorf("header = %+v, want %+v", gotHeader, header)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %x, want %x", gotPayload, payload)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	with, err := Marshal(sampleHeader{Version: 1, Compression: "zstd"})
	if err != nil {
		t.Fatal(err)
	}
	without, err := Marshal(sampleHeader{Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(without) >= len(with) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes", len(without), len(with))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var header sampleHeader
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &header); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"version": 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
}

func TestDiagnose(t *testing.T) {
	first, err := Marshal(map[string]any{"compression": "lz4"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal([]byte{1, 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	sequence := append(append([]byte(nil), first...), second...)

	notation, remaining, err := Diagnose(sequence)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"compression"`) || !strings.Contains(notation, `"lz4"`) {
		t.Errorf("notation %q does not describe the header", notation)
	}
	if !bytes.Equal(remaining, second) {
		t.Errorf("remaining = %x, want the second item %x", remaining, second)
	}
}

func BenchmarkMarshal(b *testing.B) {
	header := sampleHeader{Version: 1, Compression: "zstd", SavedAt: time.Now()}
	b.ReportAllocs()
	for b.Loop() {
		Marshal(header)
	}
}
