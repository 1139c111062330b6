package domain

import "time"

// AnalysisStatus enumerates the per-photo analysis lifecycle.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisAnalyzing AnalysisStatus = "analyzing"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Terminal reports whether no further automatic transition is expected.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// QualityTier buckets an overall score into a human-readable grade.
type QualityTier string

const (
	TierExcellent  QualityTier = "excellent"
	TierGood       QualityTier = "good"
	TierAcceptable QualityTier = "acceptable"
	TierPoor       QualityTier = "poor"
	TierReject     QualityTier = "reject"
)

// FactorScores carries the per-factor scores (0-100) the vision service returns.
type FactorScores struct {
	Sharpness        float64 `json:"sharpness"`
	Exposure         float64 `json:"exposure"`
	ColorAccuracy    float64 `json:"color_accuracy"`
	NoiseGrain       float64 `json:"noise_grain"`
	DynamicRange     float64 `json:"dynamic_range"`
	RuleOfThirds     float64 `json:"rule_of_thirds"`
	SubjectPlacement float64 `json:"subject_placement"`
	Framing          float64 `json:"framing"`
	Balance          float64 `json:"balance"`
	MotionBlur       float64 `json:"motion_blur"`
	SubjectLighting  float64 `json:"subject_lighting"`
	EmotionalImpact  float64 `json:"emotional_impact"`
}

// Recommendations is the engine-space baseline adjustment set the vision
// service suggests for a photo. Preset modifiers compose on top of it.
type Recommendations struct {
	ExposureEV      float64 `json:"exposure_adjustment"`
	ContrastDelta   float64 `json:"contrast_adjustment"`
	SaturationDelta float64 `json:"saturation_adjustment"`
	VibranceDelta   float64 `json:"vibrance_adjustment"`
	SharpnessDelta  float64 `json:"sharpness_adjustment"`
	CanAutoFix      bool    `json:"can_auto_fix"`
}

// AnalysisResult is the structured score payload for one analyzed photo.
type AnalysisResult struct {
	OverallScore     float64          `json:"overall_score"`
	QualityTier      QualityTier      `json:"quality_tier"`
	FactorScores     FactorScores     `json:"factor_scores"`
	DetectedIssues   []string         `json:"detected_issues,omitempty"`
	AISummary        string           `json:"ai_summary,omitempty"`
	JerseyNumber     string           `json:"jersey_number,omitempty"`
	JerseyConfidence float64          `json:"jersey_confidence,omitempty"`
	PostProcessing   *Recommendations `json:"post_processing,omitempty"`
}

// UploadedItem tracks one photo through the client-side pipeline.
//
// Result is non-nil if and only if Status == AnalysisCompleted; every other
// transition clears it.
type UploadedItem struct {
	ID       string
	Filename string
	Status   AnalysisStatus
	Result   *AnalysisResult
	Error    string
}

// Image is the server-side record for a stored photo.
type Image struct {
	ID          string
	Filename    string
	StorageKey  string
	EnhancedKey string
	SizeBytes   int64
	Status      AnalysisStatus
	ResultJSON  []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
