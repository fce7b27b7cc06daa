// Package gamma is a client for the Gamma content-generation API. Generated
// presentations are exported as .pptx and used as dynamic fragments.
package gamma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/benjaminschreck/go-deck/pkg/deck"
)

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultWaitTimeout  = 300 * time.Second
	maxListLimit        = 50
)

// ErrUnauthorized is returned when the API rejects the key
var ErrUnauthorized = errors.New("gamma: authentication failed, check the API key")

// APIError is a non-success HTTP response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamma: request failed (%d): %s", e.StatusCode, e.Message)
}

// Config describes the client configuration. Zero values fall back to the
// global deck configuration.
type Config struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       *deck.Logger
}

// Client wraps the Gamma REST API. Every failure wraps
// deck.ErrExternalFragmentUnavailable.
type Client struct {
	apiKey       string
	baseURL      *url.URL
	http         *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	logger       *deck.Logger
}

// New creates a Client from the supplied configuration
func New(cfg Config) (*Client, error) {
	global := deck.GetGlobalConfig()

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = global.Gamma.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gamma: api key is required", deck.ErrExternalFragmentUnavailable)
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = global.Gamma.BaseURL
	}
	if base == "" {
		base = deck.DefaultGammaBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("gamma: parse base url: %w", err)
	}

	client := &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		http:         cfg.HTTPClient,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
	}
	if client.http == nil {
		client.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.pollInterval <= 0 {
		client.pollInterval = global.GammaPollInterval()
	}
	if client.pollInterval <= 0 {
		client.pollInterval = defaultPollInterval
	}
	if client.timeout <= 0 {
		client.timeout = global.GammaTimeout()
	}
	if client.timeout <= 0 {
		client.timeout = defaultWaitTimeout
	}
	if client.logger == nil {
		client.logger = deck.GetLogger()
	}
	return client, nil
}

// Generate starts a generation from input text and returns its id
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if req.Format == "" {
		req.Format = "presentation"
	}
	if req.NumCards == 0 {
		req.NumCards = 10
	}
	if req.CardSplit == "" {
		req.CardSplit = "auto"
	}
	var resp generationResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL.JoinPath("generations"), req, &resp); err != nil {
		return "", err
	}
	return resp.GenerationID, nil
}

// CreateFromTemplate starts a generation that fills an existing gamma
func (c *Client) CreateFromTemplate(ctx context.Context, req TemplateRequest) (string, error) {
	var resp generationResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL.JoinPath("generations", "from-template"), req, &resp); err != nil {
		return "", err
	}
	return resp.GenerationID, nil
}

// Status fetches the state of a generation
func (c *Client) Status(ctx context.Context, generationID string) (GenerationStatus, error) {
	var status GenerationStatus
	err := c.do(ctx, http.MethodGet, c.baseURL.JoinPath("generations", generationID), nil, &status)
	return status, err
}

// WaitForCompletion polls until the generation is done or the configured
// timeout would be exceeded by another poll. A failed generation is an error.
func (c *Client) WaitForCompletion(ctx context.Context, generationID string) (GenerationStatus, error) {
	started := time.Now()
	logger := c.logger.WithField("generation", generationID)
	for {
		status, err := c.Status(ctx, generationID)
		if err != nil {
			return status, err
		}
		if status.Done() {
			if !status.Succeeded() {
				msg := "no reason given"
				if status.Error != nil && status.Error.Message != "" {
					msg = status.Error.Message
				}
				return status, fmt.Errorf("%w: gamma: generation %s failed: %s", deck.ErrExternalFragmentUnavailable, generationID, msg)
			}
			logger.Debug("generation completed in %s", time.Since(started).Round(time.Second))
			return status, nil
		}

		if time.Since(started)+c.pollInterval > c.timeout {
			return status, fmt.Errorf("%w: gamma: generation %s timed out after %s (last status %s)",
				deck.ErrExternalFragmentUnavailable, generationID, c.timeout, status.Status)
		}
		logger.Debug("generation %s, polling again in %s", status.Status, c.pollInterval)

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, fmt.Errorf("%w: gamma: %v", deck.ErrExternalFragmentUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

// GenerateAndWait starts a generation and waits for it
func (c *Client) GenerateAndWait(ctx context.Context, req GenerateRequest) (GenerationStatus, error) {
	id, err := c.Generate(ctx, req)
	if err != nil {
		return GenerationStatus{}, err
	}
	return c.WaitForCompletion(ctx, id)
}

// TemplateAndWait starts a template generation and waits for it
func (c *Client) TemplateAndWait(ctx context.Context, req TemplateRequest) (GenerationStatus, error) {
	id, err := c.CreateFromTemplate(ctx, req)
	if err != nil {
		return GenerationStatus{}, err
	}
	return c.WaitForCompletion(ctx, id)
}

// ListThemes returns the first page of themes matching query. limit is capped at 50.
func (c *Client) ListThemes(ctx context.Context, query string, limit int) ([]Theme, error) {
	var resp page[Theme]
	if err := c.do(ctx, http.MethodGet, c.listURL("themes", query, limit), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListFolders returns the first page of folders matching query. limit is capped at 50.
func (c *Client) ListFolders(ctx context.Context, query string, limit int) ([]Folder, error) {
	var resp page[Folder]
	if err := c.do(ctx, http.MethodGet, c.listURL("folders", query, limit), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Download fetches an exported file to dest and returns dest. The export URL
// is pre-signed, so no API key is sent.
func (c *Client) Download(ctx context.Context, exportURL, dest string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: gamma: build download request: %v", deck.ErrExternalFragmentUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gamma: download failed: %v", deck.ErrExternalFragmentUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: gamma: download failed (%s)", deck.ErrExternalFragmentUnavailable, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("gamma: create download dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("gamma: create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("%w: gamma: download interrupted: %v", deck.ErrExternalFragmentUnavailable, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("gamma: write %s: %w", dest, err)
	}
	return dest, nil
}

func (c *Client) listURL(resource, query string, limit int) *url.URL {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	endpoint := c.baseURL.JoinPath(resource)
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if query != "" {
		params.Set("query", query)
	}
	endpoint.RawQuery = params.Encode()
	return endpoint
}

func (c *Client) do(ctx context.Context, method string, endpoint *url.URL, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gamma: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%w: gamma: build request: %v", deck.ErrExternalFragmentUnavailable, err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: gamma: %s %s: %v", deck.ErrExternalFragmentUnavailable, method, endpoint.Path, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("%w: %w", deck.ErrExternalFragmentUnavailable, err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: gamma: decode response: %v", deck.ErrExternalFragmentUnavailable, err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var body errorResponse
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			msg = body.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}
