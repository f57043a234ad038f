// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

package notpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pixelwarden/pixelwarden/lib/netutil"
	"github.com/pixelwarden/pixelwarden/painter"
)

// Default endpoints.
const (
	DefaultAPIURL   = "https://notpx.app/api/v1"
	DefaultImageURL = "https://image.notpx.app/api/v2"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// APIURL is the base of the REST API. Empty means DefaultAPIURL.
	APIURL string
	// ImageURL is the base of the canvas image host. Empty means
	// DefaultImageURL.
	ImageURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used. Use NewHTTPClient to route through a proxy.
	HTTPClient *http.Client
	// Header is sent with every API request (authorization, user
	// agent, origin).
	Header http.Header
	// ImageHeader is sent with canvas and template downloads.
	ImageHeader http.Header
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks to the game API on behalf of one account.
type Client struct {
	apiURL      string
	imageURL    string
	httpClient  *http.Client
	header      http.Header
	imageHeader http.Header
	logger      *slog.Logger
}

// NewClient creates a client from config.
func NewClient(config ClientConfig) (*Client, error) {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	imageURL := config.ImageURL
	if imageURL == "" {
		imageURL = DefaultImageURL
	}
	for name, raw := range map[string]string{"APIURL": apiURL, "ImageURL": imageURL} {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("notpx: invalid %s %q: %w", name, raw, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("notpx: %s %q must be absolute", name, raw)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiURL:      strings.TrimRight(apiURL, "/"),
		imageURL:    strings.TrimRight(imageURL, "/"),
		httpClient:  httpClient,
		header:      config.Header.Clone(),
		imageHeader: config.ImageHeader.Clone(),
		logger:      logger,
	}, nil
}

// NewHTTPClient returns an HTTP client that routes through proxy (nil
// for a direct connection) with the given overall request timeout.
func NewHTTPClient(proxy *url.URL, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// HTTPClient returns the transport the client sends through. The
// channel dialer reuses its proxy settings.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// CloseIdleConnections drops pooled connections, forcing fresh ones
// after a network disruption.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Me returns the account's profile, including its channel token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/users/me", &user); err != nil {
		return nil, fmt.Errorf("notpx: fetching profile: %w", err)
	}
	return &user, nil
}

// WebsocketToken returns a fresh channel token for the account.
func (c *Client) WebsocketToken(ctx context.Context) (string, error) {
	user, err := c.Me(ctx)
	if err != nil {
		return "", err
	}
	if user.WebsocketToken == "" {
		return "", errors.New("notpx: profile has no websocket token")
	}
	return user.WebsocketToken, nil
}

// CanvasImage downloads the full canvas image.
func (c *Client) CanvasImage(ctx context.Context) ([]byte, error) {
	body, err := c.download(ctx, c.imageURL+"/image")
	if err != nil {
		return nil, fmt.Errorf("notpx: downloading canvas: %w", err)
	}
	return body, nil
}

// Status returns the account's charges and balance.
func (c *Client) Status(ctx context.Context) (*MiningStatus, error) {
	var status MiningStatus
	if err := c.getJSON(ctx, "/mining/status", &status); err != nil {
		return nil, fmt.Errorf("notpx: fetching mining status: %w", err)
	}
	return &status, nil
}

// MyTemplate returns the template the account is subscribed to. An
// account without one gets an error satisfying IsNotFound.
func (c *Client) MyTemplate(ctx context.Context) (*TemplateInfo, error) {
	var info TemplateInfo
	if err := c.getJSON(ctx, "/image/template/my", &info); err != nil {
		return nil, fmt.Errorf("notpx: fetching subscribed template: %w", err)
	}
	return &info, nil
}

// ListTemplates returns one page of public templates.
func (c *Client) ListTemplates(ctx context.Context, limit, offset int) ([]TemplateInfo, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var templates []TemplateInfo
	if err := c.getJSON(ctx, "/image/template/list?"+query.Encode(), &templates); err != nil {
		return nil, fmt.Errorf("notpx: listing templates: %w", err)
	}
	return templates, nil
}

// TemplateInfo returns one template's placement.
func (c *Client) TemplateInfo(ctx context.Context, id int64) (*TemplateInfo, error) {
	var info TemplateInfo
	if err := c.getJSON(ctx, "/image/template/"+strconv.FormatInt(id, 10), &info); err != nil {
		return nil, fmt.Errorf("notpx: fetching template %d: %w", id, err)
	}
	return &info, nil
}

// SubscribeTemplate makes id the account's template.
func (c *Client) SubscribeTemplate(ctx context.Context, id int64) error {
	path := "/image/template/subscribe/" + strconv.FormatInt(id, 10)
	if _, err := c.doRequest(ctx, http.MethodPut, c.apiURL+path, c.header, nil); err != nil {
		return fmt.Errorf("notpx: subscribing to template %d: %w", id, err)
	}
	c.logger.Info("subscribed to template", "template_id", id)
	return nil
}

// TemplateImage downloads a template bitmap from its absolute URL. A
// missing image is reported as painter.ErrTemplate so the painter
// picks another template.
func (c *Client) TemplateImage(ctx context.Context, imageURL string) ([]byte, error) {
	body, err := c.download(ctx, imageURL)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("notpx: downloading template image: %w: %w", painter.ErrTemplate, err)
		}
		return nil, fmt.Errorf("notpx: downloading template image: %w", err)
	}
	return body, nil
}

// Repaint spends one charge painting pixelID with color ("#RRGGBB")
// and returns the account's balance afterwards.
func (c *Client) Repaint(ctx context.Context, pixelID int, color string) (float64, error) {
	body, err := c.doRequest(ctx, http.MethodPost, c.apiURL+"/repaint/start", c.header,
		RepaintRequest{PixelID: pixelID, NewColor: color})
	if err != nil {
		return 0, fmt.Errorf("notpx: repainting pixel %d: %w", pixelID, err)
	}
	var response RepaintResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("notpx: parsing repaint response: %w", err)
	}
	return response.Balance, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	body, err := c.doRequest(ctx, http.MethodGet, c.apiURL+path, c.header, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, requestURL string) ([]byte, error) {
	request, err := c.newRequest(ctx, http.MethodGet, requestURL, c.imageHeader, nil)
	if err != nil {
		return nil, err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", requestURL, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &APIError{
			Method:     http.MethodGet,
			Path:       request.URL.Path,
			StatusCode: response.StatusCode,
			Body:       netutil.ErrorBody(response.Body),
		}
	}
	return netutil.ReadLimited(response.Body, netutil.MaxImageSize)
}

// doRequest performs a JSON request and returns the response body of
// a 2xx response, or *APIError.
func (c *Client) doRequest(ctx context.Context, method, requestURL string, header http.Header, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := c.newRequest(ctx, method, requestURL, header, bodyReader)
	if err != nil {
		return nil, err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, request.URL.Path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &APIError{
			Method:     method,
			Path:       request.URL.Path,
			StatusCode: response.StatusCode,
			Body:       netutil.ErrorBody(response.Body),
		}
	}

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", request.URL.Path, err)
	}
	return responseBody, nil
}

func (c *Client) newRequest(ctx context.Context, method, requestURL string, header http.Header, body io.Reader) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for name, values := range header {
		for _, value := range values {
			request.Header.Add(name, value)
		}
	}
	return request, nil
}
