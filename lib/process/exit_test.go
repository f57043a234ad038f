// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

type codedError int

func (e codedError) Error() string { return "coded" }
func (e codedError) ExitCode() int { return int(e) }

func TestReport(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		output string
	}{
		{"nil", nil, 0, ""},
		{"plain", errors.New("no accounts configured"), 1, "error: no accounts configured\n"},
		{"coded", codedError(2), 2, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			if code := Report(&output, test.err); code != test.code {
				t.Errorf("Report code = %d, want %d", code, test.code)
			}
			if output.String() != test.output {
				t.Errorf("Report wrote %q, want %q", output.String(), test.output)
			}
		})
	}
}
