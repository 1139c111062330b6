// Package vision wraps the remote photo-scoring service behind the Analyzer
// contract.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"photoflow/internal/domain"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("vision: api key is required")

// Options configures the scoring client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
	// RequestsPerSecond throttles calls to the upstream service. Zero means
	// the default of 2 rps.
	RequestsPerSecond float64
}

// Client performs HTTP calls to the scoring service.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
}

type scoreRequest struct {
	Model     string `json:"model"`
	ImageID   string `json:"image_id"`
	Filename  string `json:"filename"`
	ImageData string `json:"image_data"`
}

type scoreResponse struct {
	Analysis *domain.AnalysisResult `json:"analysis"`
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
}

// NewClient constructs a scoring client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://vision.photoflow.dev/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "photoscore-2"
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "vision").Logger(),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Analyze scores one photo, waiting on the rate limiter first.
func (c *Client) Analyze(ctx context.Context, req Request) (*domain.AnalysisResult, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(req.Data) == 0 {
		return nil, errors.New("vision: image data is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := scoreRequest{
		Model:     c.model,
		ImageID:   req.ImageID,
		Filename:  req.Filename,
		ImageData: base64.StdEncoding.EncodeToString(req.Data),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vision: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vision: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Op: "vision score", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: "vision score", Err: err}
	}
	if resp.StatusCode >= 300 {
		remote := &domain.RemoteError{Op: "vision score", StatusCode: resp.StatusCode}
		var detail scoreResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			remote.Code = detail.Code
			remote.Message = detail.Message
		}
		return nil, remote
	}

	var decoded scoreResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("vision: decode response: %w", err)
	}
	if decoded.Analysis == nil {
		return nil, errors.New("vision: response missing analysis")
	}
	c.logger.Debug().
		Str("image_id", req.ImageID).
		Float64("score", decoded.Analysis.OverallScore).
		Msg("photo scored")
	return decoded.Analysis, nil
}
