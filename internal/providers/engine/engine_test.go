package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"photoflow/internal/domain"
	"photoflow/internal/enhance"
)

// captureTransport records the outbound request and returns a canned response.
type captureTransport struct {
	request *http.Request
	body    []byte
	status  int
	payload any
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.request = req
	if req.Body != nil {
		t.body, _ = io.ReadAll(req.Body)
	}
	raw, _ := json.Marshal(t.payload)
	return &http.Response{
		StatusCode: t.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}, nil
}

func TestEnhanceRequestShape(t *testing.T) {
	rendition := base64.StdEncoding.EncodeToString([]byte("enhanced-bytes"))
	transport := &captureTransport{
		status:  http.StatusOK,
		payload: map[string]any{"image_data": rendition, "format": "png"},
	}
	client, err := NewClient(Options{
		BaseURL:    "https://engine.test/v1",
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Enhance(context.Background(), Request{
		ImageID:     "img-1",
		Data:        []byte{0x01},
		Adjustments: enhance.EngineVector{ExposureEV: 0.5, SharpnessDelta: 8},
		AspectRatio: "1:1",
		Quality:     95,
	})
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if string(result.Data) != "enhanced-bytes" || result.Format != "png" {
		t.Fatalf("result = %+v", result)
	}

	if transport.request.URL.String() != "https://engine.test/v1/enhance" {
		t.Fatalf("url = %s", transport.request.URL)
	}
	if got := transport.request.Header.Get("Authorization"); got != "Bearer key" {
		t.Fatalf("authorization = %q", got)
	}
	var sent enhanceRequest
	if err := json.Unmarshal(transport.body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent.ImageID != "img-1" || sent.Adjustments.ExposureEV != 0.5 || sent.Quality != 95 {
		t.Fatalf("sent = %+v", sent)
	}
	if sent.ImageData != base64.StdEncoding.EncodeToString([]byte{0x01}) {
		t.Fatalf("image data = %q", sent.ImageData)
	}
}

func TestEnhanceRemoteFailure(t *testing.T) {
	transport := &captureTransport{
		status:  http.StatusServiceUnavailable,
		payload: map[string]any{"code": "overloaded", "message": "try again later"},
	}
	client, err := NewClient(Options{
		BaseURL:    "https://engine.test/v1",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Enhance(context.Background(), Request{ImageID: "img-1", Data: []byte{0x01}})
	var remote *domain.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if remote.StatusCode != http.StatusServiceUnavailable || remote.Code != "overloaded" {
		t.Fatalf("remote = %+v", remote)
	}
}

func TestEnhanceRequiresImageData(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "https://engine.test/v1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Enhance(context.Background(), Request{ImageID: "img-1"}); err == nil {
		t.Fatal("enhance without data must fail")
	}
}
