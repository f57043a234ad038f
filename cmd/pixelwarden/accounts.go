// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/pixelwarden/pixelwarden/lib/accounts"
	"github.com/pixelwarden/pixelwarden/lib/secret"
)

func checkCommand() *command {
	var flags configFlags
	return &command{
		name:    "check",
		summary: "Validate the configuration and accounts file",
		description: `Check loads the configuration and the accounts file the way run does,
decrypting a sealed file with the configured identity, and lists the
accounts it found. Nothing is sent to the network.`,
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			accountList, err := accounts.Load(cfg.Accounts.Path, cfg.Accounts.Identity)
			if err != nil {
				return err
			}
			return listAccounts(os.Stdout, accountList)
		},
	}
}

// listAccounts prints one line per account without its credentials.
func listAccounts(w io.Writer, accountList []accounts.Account) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tPROXY\tTOKEN")
	for _, account := range accountList {
		proxy := "direct"
		if account.Proxy != "" {
			parsed, err := account.ProxyURL()
			if err != nil {
				return fmt.Errorf("account %s: %w", account.SessionName, err)
			}
			proxy = parsed.Scheme + "://" + parsed.Host
		}
		token := "fetch"
		if account.WebsocketToken != "" {
			token = "stored"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", account.SessionName, proxy, token)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d account(s) ok\n", len(accountList))
	return nil
}

func sealCommand() *command {
	var (
		recipients []string
		output     string
	)
	return &command{
		name:    "seal",
		summary: "Encrypt an accounts file with age",
		description: `Seal validates a plaintext accounts file and encrypts it to one or more
age recipients. The result is ASCII armored and written next to the input
with an .age suffix unless --output is given. Point accounts.path at the
sealed file and accounts.identity at the matching identity.`,
		usage: "pixelwarden seal --recipient <age1...> [--output <path>] <accounts.json>",
		examples: []example{
			{
				description: "Seal for the identity created by keygen",
				command:     "pixelwarden seal -r age1qyq... accounts.json",
			},
		},
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "age recipient public key (repeatable)")
			flagSet.StringVarP(&output, "output", "o", "", "sealed file path (default <input>.age)")
			return flagSet
		},
		run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("seal needs exactly one accounts file")
			}
			input := args[0]
			if output == "" {
				output = input + accounts.SealedSuffix
			}
			return sealFile(input, output, recipients)
		},
	}
}

// sealFile encrypts input to output. The output is written only after
// encryption succeeds.
func sealFile(input, output string, recipients []string) error {
	plaintext, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	defer secret.Zero(plaintext)

	var sealed strings.Builder
	if err := accounts.Seal(&sealed, plaintext, recipients); err != nil {
		return err
	}
	if err := os.WriteFile(output, []byte(sealed.String()), 0o600); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "sealed %s to %d recipient(s): %s\n", input, len(recipients), output)
	return nil
}

func keygenCommand() *command {
	var output string
	return &command{
		name:    "keygen",
		summary: "Generate an age identity for sealed accounts",
		description: `Keygen writes a new X25519 age identity to --output (mode 0600) and
prints its public key. An existing file is never overwritten.`,
		flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&output, "output", "o", "", "identity file to create (required)")
			return flagSet
		},
		run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if output == "" {
				return errors.New("--output is required")
			}
			recipient, err := writeIdentity(output, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, recipient)
			return nil
		},
	}
}

// writeIdentity creates a new identity file at path in age-keygen
// format and returns the public key.
func writeIdentity(path string, now time.Time) (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	recipient := identity.Recipient().String()

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	_, err = fmt.Fprintf(file, "# created: %s\n# public key: %s\n%s\n",
		now.UTC().Format(time.RFC3339), recipient, identity.String())
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return recipient, nil
}
