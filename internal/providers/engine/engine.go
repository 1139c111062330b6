// Package engine wraps the remote enhancement engine. Pixel-level rendering
// happens upstream; this client sends engine-space adjustment deltas together
// with the image bytes and receives the enhanced rendition back.
package engine

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

	"photoflow/internal/domain"
	"photoflow/internal/enhance"
)

// Request carries one photo plus the final engine-space adjustments.
type Request struct {
	ImageID     string
	Data        []byte
	Adjustments enhance.EngineVector
	AspectRatio string
	Quality     int
}

// Result is the enhanced rendition.
type Result struct {
	Data   []byte
	Format string
}

// Enhancer renders one enhanced photo.
type Enhancer interface {
	Enhance(ctx context.Context, req Request) (*Result, error)
}

// Options configures the engine client.
type Options struct {
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client is the HTTP implementation of Enhancer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs an engine client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("engine: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger.With().Str("component", "engine").Logger(),
	}, nil
}

type enhanceRequest struct {
	ImageID     string               `json:"image_id"`
	ImageData   string               `json:"image_data"`
	Adjustments enhance.EngineVector `json:"adjustments"`
	AspectRatio string               `json:"aspect_ratio,omitempty"`
	Quality     int                  `json:"quality,omitempty"`
}

type enhanceResponse struct {
	ImageData string `json:"image_data"`
	Format    string `json:"format"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Enhance renders one photo with the given adjustments.
func (c *Client) Enhance(ctx context.Context, req Request) (*Result, error) {
	if len(req.Data) == 0 {
		return nil, errors.New("engine: image data is required")
	}
	payload := enhanceRequest{
		ImageID:     req.ImageID,
		ImageData:   base64.StdEncoding.EncodeToString(req.Data),
		Adjustments: req.Adjustments,
		AspectRatio: req.AspectRatio,
		Quality:     req.Quality,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("engine: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enhance", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("engine: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Op: "engine enhance", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: "engine enhance", Err: err}
	}
	if resp.StatusCode >= 300 {
		remote := &domain.RemoteError{Op: "engine enhance", StatusCode: resp.StatusCode}
		var detail enhanceResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			remote.Code = detail.Code
			remote.Message = detail.Message
		}
		return nil, remote
	}

	var decoded enhanceResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("engine: decode response: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(decoded.ImageData)
	if err != nil {
		return nil, fmt.Errorf("engine: decode image data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("engine: empty rendition")
	}
	format := decoded.Format
	if format == "" {
		format = "jpeg"
	}
	c.logger.Debug().Str("image_id", req.ImageID).Int("bytes", len(data)).Msg("photo enhanced")
	return &Result{Data: data, Format: format}, nil
}
