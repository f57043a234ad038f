// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package notpx

import "github.com/pixelwarden/pixelwarden/painter"

// User is the response from /users/me.
type User struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	WebsocketToken string `json:"websocketToken"`
}

// MiningStatus is the response from /mining/status.
type MiningStatus struct {
	Charges       int            `json:"charges"`
	MaxCharges    int            `json:"maxCharges"`
	UserBalance   float64        `json:"userBalance"`
	League        string         `json:"league"`
	ReChargeSpeed int64          `json:"reChargeSpeed"`
	Boosts        map[string]int `json:"boosts"`
}

// TemplateInfo describes a template as returned by the template
// endpoints. The list and "my" endpoints name the identifier
// templateId; the detail endpoint names it id.
type TemplateInfo struct {
	TemplateID int64  `json:"templateId"`
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	ImageSize  int    `json:"imageSize"`
}

// Identifier returns whichever identifier field the endpoint filled.
func (info TemplateInfo) Identifier() int64 {
	if info.TemplateID != 0 {
		return info.TemplateID
	}
	return info.ID
}

// Template converts the API shape to the painter's.
func (info TemplateInfo) Template() painter.Template {
	return painter.Template{
		ID:   info.Identifier(),
		URL:  info.URL,
		X:    info.X,
		Y:    info.Y,
		Size: info.ImageSize,
	}
}

// RepaintRequest is the body of /repaint/start.
type RepaintRequest struct {
	PixelID  int    `json:"pixelId"`
	NewColor string `json:"newColor"`
}

// RepaintResponse is the response from /repaint/start.
type RepaintResponse struct {
	Balance float64 `json:"balance"`
}
