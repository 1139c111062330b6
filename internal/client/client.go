// Package client implements the HTTP client for the photoflow collaborator
// API: batch upload, per-item analysis, job start, and the REST job-status
// fallback. The progress stream itself lives in internal/progress.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
	"photoflow/internal/enhance"
)

// Options configures the API client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the collaborator API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// File is one raw upload input.
type File struct {
	Name string
	Data []byte
}

// ItemRecord is the upload endpoint's per-file registration result.
type ItemRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// StartEnhancementRequest starts a batch enhancement job. Either a preset
// name or an explicit engine-space vector is sent, never both.
type StartEnhancementRequest struct {
	ImageIDs    []string
	Preset      string
	Adjustments *enhance.EngineVector
}

// New constructs a client with sane defaults.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "client").Logger(),
	}, nil
}

// UploadBatch sends every file in one multipart call. The server registers
// all of them or none; a non-success response means no item was created.
func (c *Client) UploadBatch(ctx context.Context, files []File) ([]ItemRecord, error) {
	if len(files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("client: build multipart: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("client: write multipart: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/upload-batch", body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var decoded struct {
		Items []ItemRecord `json:"items"`
	}
	if err := c.do(req, "upload", &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Items) != len(files) {
		return nil, &domain.ProtocolError{
			Op:     "upload",
			Reason: fmt.Sprintf("registered %d items for %d files", len(decoded.Items), len(files)),
		}
	}
	return decoded.Items, nil
}

// Analyze requests a score payload for one uploaded item.
func (c *Client) Analyze(ctx context.Context, itemID string) (*domain.AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analysis/analyze/"+itemID, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	var decoded struct {
		ImageID  string                 `json:"image_id"`
		Analysis *domain.AnalysisResult `json:"analysis"`
		Status   string                 `json:"status"`
	}
	if err := c.do(req, "analyze", &decoded); err != nil {
		return nil, err
	}
	if decoded.Analysis == nil {
		return nil, &domain.ProtocolError{Op: "analyze", Reason: "response missing analysis payload"}
	}
	return decoded.Analysis, nil
}

// StartEnhancement enqueues a batch enhancement job and returns its job id.
func (c *Client) StartEnhancement(ctx context.Context, startReq StartEnhancementRequest) (string, error) {
	if len(startReq.ImageIDs) == 0 {
		return "", domain.ErrEmptyBatch
	}
	payload := map[string]any{"image_ids": startReq.ImageIDs}
	if startReq.Adjustments != nil {
		payload["adjustments"] = startReq.Adjustments
	} else {
		preset := startReq.Preset
		if preset == "" {
			preset = "professional"
		}
		if _, ok := enhance.GetPreset(preset); !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrUnknownPreset, preset)
		}
		payload["preset"] = preset
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("client: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/batch/enhancement", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var decoded struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := c.do(req, "start enhancement", &decoded); err != nil {
		return "", err
	}
	if decoded.JobID == "" {
		return "", &domain.ProtocolError{Op: "start enhancement", Reason: "response missing job_id"}
	}
	return decoded.JobID, nil
}

// JobStatus queries the REST status endpoint. It is the recovery path when
// the progress stream ends with an unknown outcome.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/batch/enhancement/"+jobID+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	var decoded struct {
		JobID           string   `json:"job_id"`
		Status          string   `json:"status"`
		Current         int      `json:"current"`
		Total           int      `json:"total"`
		Message         string   `json:"message"`
		Percent         float64  `json:"percent"`
		Successful      *int     `json:"successful"`
		Failed          *int     `json:"failed"`
		DurationSeconds *float64 `json:"duration_seconds"`
	}
	if err := c.do(req, "job status", &decoded); err != nil {
		return nil, err
	}
	job := &domain.BatchJob{
		ID:       decoded.JobID,
		Status:   domain.JobStatus(decoded.Status),
		Progress: domain.Progress{Current: decoded.Current, Total: decoded.Total},
		Message:  decoded.Message,
		Percent:  decoded.Percent,
	}
	if job.Status.Terminal() && decoded.Successful != nil && decoded.Failed != nil {
		summary := domain.ResultSummary{Successful: *decoded.Successful, Failed: *decoded.Failed}
		if decoded.DurationSeconds != nil {
			summary.DurationSeconds = *decoded.DurationSeconds
		}
		job.Summary = &summary
	}
	return job, nil
}

// StreamURL returns the websocket address of the progress stream for a job.
func (c *Client) StreamURL(jobID string) string {
	url := c.baseURL + "/v1/batch/ws/enhancement/" + jobID
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do executes the request and decodes a JSON response into out, mapping
// failures onto the domain error taxonomy.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode >= 300 {
		remote := &domain.RemoteError{Op: op, StatusCode: resp.StatusCode}
		var detail errorBody
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			remote.Code = detail.Code
			remote.Message = detail.Message
		} else {
			remote.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("remote error")
		return remote
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.ProtocolError{Op: op, Reason: "undecodable response body", Err: err}
	}
	return nil
}
