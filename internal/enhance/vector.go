// Package enhance implements the adjustment model for batch photo
// enhancement: the bidirectional mapping between the slider values shown to
// users and the deltas the remote enhancement engine consumes, plus the named
// presets built on top of it.
package enhance

import (
	"fmt"
	"strconv"
)

// DisplayVector is the adjustment representation edited in the UI.
// Brightness, contrast and saturation are percentages centered at 100;
// vibrance and sharpness are signed deltas centered at 0.
type DisplayVector struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Vibrance   float64 `json:"vibrance"`
	Sharpness  float64 `json:"sharpness"`
}

// EngineVector is the adjustment representation the enhancement engine
// consumes: exposure in EV, the rest as signed deltas.
type EngineVector struct {
	ExposureEV      float64 `json:"exposure_adjustment"`
	ContrastDelta   float64 `json:"contrast_adjustment"`
	SaturationDelta float64 `json:"saturation_adjustment"`
	VibranceDelta   float64 `json:"vibrance_adjustment"`
	SharpnessDelta  float64 `json:"sharpness_adjustment"`
}

// Encode maps engine space to display space. The mapping is affine and
// exactly invertible; no clamping happens here. Range clamping, if any, is a
// UI concern applied to display values only.
func Encode(e EngineVector) DisplayVector {
	return DisplayVector{
		Brightness: 100 + e.ExposureEV*40,
		Contrast:   100 + e.ContrastDelta,
		Saturation: 100 + e.SaturationDelta,
		Vibrance:   e.VibranceDelta,
		Sharpness:  e.SharpnessDelta,
	}
}

// Decode maps display space back to engine space. Decode(Encode(x)) == x.
func Decode(d DisplayVector) EngineVector {
	return EngineVector{
		ExposureEV:      (d.Brightness - 100) / 40,
		ContrastDelta:   d.Contrast - 100,
		SaturationDelta: d.Saturation - 100,
		VibranceDelta:   d.Vibrance,
		SharpnessDelta:  d.Sharpness,
	}
}

// Add composes two engine vectors field-wise. Preset modifiers are applied on
// top of base recommendations this way.
func (e EngineVector) Add(other EngineVector) EngineVector {
	return EngineVector{
		ExposureEV:      e.ExposureEV + other.ExposureEV,
		ContrastDelta:   e.ContrastDelta + other.ContrastDelta,
		SaturationDelta: e.SaturationDelta + other.SaturationDelta,
		VibranceDelta:   e.VibranceDelta + other.VibranceDelta,
		SharpnessDelta:  e.SharpnessDelta + other.SharpnessDelta,
	}
}

// CSSFilter renders the live-preview filter string for a display vector.
// Only brightness, contrast and saturation have a visual preview effect;
// vibrance and sharpness exist solely in the persisted engine payload.
func CSSFilter(d DisplayVector) string {
	return fmt.Sprintf("brightness(%s%%) contrast(%s%%) saturate(%s%%)",
		formatPercent(d.Brightness),
		formatPercent(d.Contrast),
		formatPercent(d.Saturation),
	)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
