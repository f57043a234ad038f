// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, expires time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).
		SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	for _, test := range []struct {
		name  string
		token string
		want  bool
	}{
		{"one minute left", signedToken(t, now.Add(time.Minute)), true},
		{"exactly at margin", signedToken(t, now.Add(5*time.Minute)), true},
		{"one hour left", signedToken(t, now.Add(time.Hour)), false},
		{"already expired", signedToken(t, now.Add(-time.Hour)), true},
		{"no exp claim", noExpiry, true},
		{"garbage", "not-a-token", true},
		{"empty", "", true},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := TokenExpired(test.token, now, 5*time.Minute); got != test.want {
				t.Errorf("TokenExpired = %v, want %v", got, test.want)
			}
		})
	}
}
