// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package notpx is the HTTP client for the pixel game's REST API and
// its image host.
//
// A [Client] belongs to one account: it carries that account's header
// sets (API and image host) and its HTTP transport, which routes
// through the account's proxy when one is configured. The client
// implements channel.Backend (token and canvas downloads) and
// painter.Client (template downloads and repaints); [TemplateSelector]
// implements painter.Selector on top of it.
//
// Non-2xx responses are returned as *APIError. A missing resource is
// reported by [IsNotFound]; callers that treat absence as a normal
// state (no template subscribed yet) check it explicitly.
package notpx
