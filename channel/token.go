// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether token expires within margin of now. The
// signature is not verified; only the exp claim is read. A token that
// cannot be parsed, or carries no exp claim, counts as expired.
func TokenExpired(token string, now time.Time, margin time.Duration) bool {
	if token == "" {
		return true
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !now.Add(margin).Before(claims.ExpiresAt.Time)
}
