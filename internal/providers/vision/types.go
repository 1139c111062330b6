package vision

import (
	"context"

	"photoflow/internal/domain"
)

// Request carries one photo to the scoring service.
type Request struct {
	ImageID  string
	Filename string
	Data     []byte
}

// Analyzer scores a single photo. The scoring algorithm itself is an opaque
// remote service; only this contract matters.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*domain.AnalysisResult, error)
}
