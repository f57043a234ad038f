// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/tidwall/jsonc"

	"github.com/pixelwarden/pixelwarden/lib/netutil"
	"github.com/pixelwarden/pixelwarden/lib/secret"
)

// SealedSuffix marks an age-encrypted accounts file.
const SealedSuffix = ".age"

// Account is one entry of the accounts file.
type Account struct {
	// SessionName identifies the account in logs and in the session
	// pool. Names are unique within a file.
	SessionName string `json:"session_name"`

	// UserAgent is presented on every request.
	UserAgent string `json:"user_agent"`

	// Proxy routes the account's traffic. Empty means direct.
	Proxy string `json:"proxy,omitempty"`

	// InitData is the signed mini-app launch data used as the API
	// credential.
	InitData string `json:"init_data"`

	// WebsocketToken is a channel token already issued to the
	// account. Optional; a fresh one is fetched when it is missing or
	// expired.
	WebsocketToken string `json:"websocket_token,omitempty"`
}

// ProxyURL parses the account's proxy. A nil URL means direct.
func (a Account) ProxyURL() (*url.URL, error) {
	return netutil.ParseProxy(a.Proxy)
}

// Headers are the header sets an account presents to each host.
type Headers struct {
	API     http.Header
	Image   http.Header
	Channel http.Header
}

// Origin is the web app origin the game's hosts expect.
const Origin = "https://app.notpx.app"

// Headers builds the account's header sets. The image host receives
// the same authorization as the API.
func (a Account) Headers() Headers {
	base := func() http.Header {
		return http.Header{
			"Accept-Language": {"en-US,en;q=0.9"},
			"Origin":          {Origin},
			"Referer":         {Origin + "/"},
			"Sec-Fetch-Dest":  {"empty"},
			"Sec-Fetch-Mode":  {"cors"},
			"Sec-Fetch-Site":  {"same-site"},
			"User-Agent":      {a.UserAgent},
		}
	}

	api := base()
	api.Set("Authorization", "initData "+a.InitData)

	image := base()
	image.Set("Authorization", "initData "+a.InitData)

	channel := base()
	channel.Set("Cache-Control", "no-cache")
	channel.Set("Pragma", "no-cache")
	channel.Set("Sec-Fetch-Dest", "websocket")
	channel.Set("Sec-Fetch-Mode", "websocket")

	return Headers{API: api, Image: image, Channel: channel}
}

// Parse decodes and validates an accounts file. Comments and trailing
// commas are allowed. Every problem is reported, joined.
func Parse(data []byte) ([]Account, error) {
	stripped := jsonc.ToJSON(data)
	defer secret.Zero(stripped)

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	decoder.DisallowUnknownFields()
	var list []Account
	if err := decoder.Decode(&list); err != nil {
		return nil, fmt.Errorf("accounts: parsing: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("accounts: file lists no accounts")
	}

	var errs []error
	seen := make(map[string]bool, len(list))
	for index, account := range list {
		label := fmt.Sprintf("account %d", index)
		if account.SessionName != "" {
			label = fmt.Sprintf("account %q", account.SessionName)
		}
		switch {
		case account.SessionName == "":
			errs = append(errs, fmt.Errorf("%s: session_name is required", label))
		case seen[account.SessionName]:
			errs = append(errs, fmt.Errorf("%s: duplicate session_name", label))
		}
		seen[account.SessionName] = true
		if account.UserAgent == "" {
			errs = append(errs, fmt.Errorf("%s: user_agent is required", label))
		}
		if account.InitData == "" {
			errs = append(errs, fmt.Errorf("%s: init_data is required", label))
		}
		if _, err := account.ProxyURL(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("accounts: %w", errors.Join(errs...))
	}
	return list, nil
}

// Load reads the accounts file at path. A path ending in ".age" is
// decrypted with the identities in identityPath.
func Load(path, identityPath string) ([]Account, error) {
	if !strings.HasSuffix(path, SealedSuffix) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("accounts: %w", err)
		}
		defer secret.Zero(data)
		return Parse(data)
	}

	if identityPath == "" {
		return nil, fmt.Errorf("accounts: %s is sealed and no identity file is configured", path)
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	plaintext, err := open(sealed, identityPath)
	if err != nil {
		return nil, fmt.Errorf("accounts: %s: %w", path, err)
	}
	defer plaintext.Close()
	return Parse(plaintext.Bytes())
}

// open decrypts a sealed accounts file into a secret buffer.
func open(sealed []byte, identityPath string) (*secret.Buffer, error) {
	identityFile, err := secret.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	defer identityFile.Close()

	identities, err := age.ParseIdentities(bytes.NewReader(identityFile.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	var source io.Reader = bytes.NewReader(sealed)
	if bytes.HasPrefix(bytes.TrimSpace(sealed), []byte(armor.Header)) {
		source = armor.NewReader(source)
	}
	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return secret.NewFromBytes(plaintext)
}

// Seal validates plaintext as an accounts file and writes it to dst
// encrypted to recipients (age public keys, one per entry), ASCII
// armored.
func Seal(dst io.Writer, plaintext []byte, recipientKeys []string) error {
	if _, err := Parse(plaintext); err != nil {
		return err
	}
	if len(recipientKeys) == 0 {
		return errors.New("accounts: at least one recipient is required")
	}
	recipients, err := age.ParseRecipients(strings.NewReader(strings.Join(recipientKeys, "\n")))
	if err != nil {
		return fmt.Errorf("accounts: parsing recipients: %w", err)
	}

	armored := armor.NewWriter(dst)
	writer, err := age.Encrypt(armored, recipients...)
	if err != nil {
		return fmt.Errorf("accounts: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("accounts: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("accounts: finalizing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return fmt.Errorf("accounts: finalizing armor: %w", err)
	}
	return nil
}
