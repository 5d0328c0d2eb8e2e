// Package oracle wraps the external categorization service. The client
// performs exactly one network call per invocation and converts transport
// and payload failures into typed errors; retry policy belongs to the
// caller, not here.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/domain"
)

// Typed failures. Callers branch on these with errors.Is; the raw cause is
// always wrapped underneath.
var (
	// ErrUnreachable covers connection failures, server errors, and missing
	// credentials: the service could not be asked.
	ErrUnreachable = errors.New("categorization service unreachable")
	// ErrTimeout covers calls that exceeded their deadline.
	ErrTimeout = errors.New("categorization request timed out")
	// ErrMalformedResponse covers replies no category could be extracted from.
	ErrMalformedResponse = errors.New("malformed categorization response")
	// ErrRateLimited covers quota rejections.
	ErrRateLimited = errors.New("categorization request rate limited")
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 5 * time.Second

	// maxCategoryLength guards against the model returning prose instead of
	// a label; anything longer is coerced to "Unknown".
	maxCategoryLength = 50
)

// Kind maps a classification error onto the activity record taxonomy.
func Kind(err error) domain.ErrorKind {
	switch {
	case err == nil:
		return domain.ErrorKindNone
	case errors.Is(err, ErrTimeout):
		return domain.ErrorKindOracleTimeout
	case errors.Is(err, ErrRateLimited):
		return domain.ErrorKindOracleRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return domain.ErrorKindOracleMalformedResponse
	default:
		return domain.ErrorKindOracleUnreachable
	}
}

// Doer abstracts the HTTP client for test injection.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options defines configuration parameters for the categorization client.
type Options struct {
	// required parameters
	APIKey string
	Model  string
	// optional, with defaults
	Timeout time.Duration
	BaseURL string
	// options to inject for testing purposes
	HTTPClient Doer
	Logger     log.Logger
}

// Client calls the generative categorization API for a single domain at a
// time. Safe for concurrent use.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	http    Doer
	logger  log.Logger
}

// NewClient creates a categorization client. The API key may be empty, the
// engine must start without it, but every Classify call will then fail
// with ErrUnreachable while cached traffic keeps flowing.
func NewClient(opts Options) (*Client, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("categorization model is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Client{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}, nil
}

// generateRequest is the API request envelope.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is the subset of the API reply the client extracts.
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// ensureContextDeadline adds the client's default timeout when the caller
// supplied none, returning a cancel func if one was created.
func (c *Client) ensureContextDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, nil
}

// Classify asks the service for the category of a normalized domain. Exactly
// one network call is made; no retry loop lives here.
func (c *Client) Classify(ctx context.Context, name string) (domain.Category, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API credential configured", ErrUnreachable)
	}

	ctx, cancel := c.ensureContextDeadline(ctx)
	if cancel != nil {
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: categoryPrompt(name)}}}},
		GenerationConfig: generationConfig{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	label := c.sanitizeLabel(name, decoded.Candidates[0].Content.Parts[0].Text)
	if label == "" {
		return "", fmt.Errorf("%w: empty category", ErrMalformedResponse)
	}
	return domain.Category(label), nil
}

// sanitizeLabel normalizes the model's reply into a bare category label.
// Replies shaped like "Category: X" keep only the final segment, and
// anything implausibly long is coerced to "Unknown".
func (c *Client) sanitizeLabel(name, text string) string {
	label := strings.TrimSpace(text)
	if i := strings.LastIndex(label, ":"); i >= 0 {
		label = strings.TrimSpace(label[i+1:])
	}
	if len(label) > maxCategoryLength {
		c.logger.Warn(map[string]any{
			"domain":   name,
			"category": label,
		}, "Unusual category label from model, defaulting to Unknown")
		return "Unknown"
	}
	return label
}

// classifyTransportError maps an HTTP client error to a typed failure.
func classifyTransportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
}
