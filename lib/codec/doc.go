// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides pixelwarden's standard CBOR encoding
// configuration.
//
// JSON is used where the game dictates it (REST bodies, channel event
// payloads, the accounts file). CBOR is used for everything
// pixelwarden writes for itself, which today is the canvas checkpoint
// file. The encoder uses Core Deterministic Encoding (RFC 8949 §4.2),
// so the same logical value always produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For CBOR sequences (a header item followed by a payload item):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types only ever serialized as CBOR carry `cbor` struct tags. Never
// use both `cbor` and `json` tags on the same field.
package codec
