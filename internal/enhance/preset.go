package enhance

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Preset is a purpose-driven enhancement configuration. Its modifiers are
// engine-space deltas applied on top of a photo's base recommendations.
type Preset struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description"`
	AspectRatio string       `json:"aspect_ratio"`
	Quality     int          `json:"quality"`
	Modifiers   EngineVector `json:"modifiers"`
}

// Display returns the preset's fixed display-space vector. Selecting a preset
// overwrites the working vector with this value wholesale.
func (p Preset) Display() DisplayVector {
	return Encode(p.Modifiers)
}

// Apply composes the preset's modifiers onto base engine recommendations.
func (p Preset) Apply(base EngineVector) EngineVector {
	return base.Add(p.Modifiers)
}

var titleCaser = cases.Title(language.English)

func newPreset(name, description, aspectRatio string, quality int, mods EngineVector) Preset {
	return Preset{
		Name:        name,
		DisplayName: titleCaser.String(name) + " Mode",
		Description: description,
		AspectRatio: aspectRatio,
		Quality:     quality,
		Modifiers:   mods,
	}
}

var presets = map[string]Preset{
	"auto": newPreset("auto",
		"Apply analysis recommendations without any preset modifiers",
		"original", 95, EngineVector{}),
	"instagram": newPreset("instagram",
		"Square crop with vibrant colors and extra sharpness for Instagram Feed",
		"1:1", 95, EngineVector{VibranceDelta: 20, SharpnessDelta: 15, SaturationDelta: 5}),
	"story": newPreset("story",
		"9:16 vertical crop optimized for Stories, TikTok, and Reels",
		"9:16", 92, EngineVector{VibranceDelta: 15, SharpnessDelta: 10, ContrastDelta: 5}),
	"facebook": newPreset("facebook",
		"4:5 vertical crop optimized for Facebook Feed and mobile viewing",
		"4:5", 93, EngineVector{VibranceDelta: 12, SharpnessDelta: 12, SaturationDelta: 3, ContrastDelta: 3}),
	"snapchat": newPreset("snapchat",
		"9:16 vertical crop with high impact colors for vertical video",
		"9:16", 90, EngineVector{VibranceDelta: 18, SharpnessDelta: 15, SaturationDelta: 8, ContrastDelta: 8, ExposureEV: 0.1}),
	"print": newPreset("print",
		"High quality with natural colors for professional printing",
		"original", 98, EngineVector{ContrastDelta: -5, SaturationDelta: -3, SharpnessDelta: 5}),
	"professional": newPreset("professional",
		"Natural, balanced look with subtle adjustments",
		"original", 95, EngineVector{SharpnessDelta: 8}),
	"vibrant": newPreset("vibrant",
		"Eye-catching colors with maximum impact for social media",
		"original", 95, EngineVector{ExposureEV: 0.2, ContrastDelta: 10, SaturationDelta: 15, VibranceDelta: 25, SharpnessDelta: 20}),
}

// GetPreset looks a preset up by name.
func GetPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames returns all preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns all presets in name order.
func Presets() []Preset {
	all := make([]Preset, 0, len(presets))
	for _, name := range PresetNames() {
		all = append(all, presets[name])
	}
	return all
}

// CustomTag marks a working vector that no longer matches a named preset.
const CustomTag = "custom"

// Selection is the working display vector plus the identity of the preset
// that produced it. Editing any single control reverts the tag to custom.
type Selection struct {
	Vector DisplayVector
	Tag    string
}

// NewSelection starts from the neutral display vector.
func NewSelection() Selection {
	return Selection{Vector: Encode(EngineVector{}), Tag: CustomTag}
}

// SelectPreset replaces the working vector wholesale with the preset's.
func SelectPreset(p Preset) Selection {
	return Selection{Vector: p.Display(), Tag: p.Name}
}

// Control names one of the editable display-space sliders.
type Control string

const (
	ControlBrightness Control = "brightness"
	ControlContrast   Control = "contrast"
	ControlSaturation Control = "saturation"
	ControlVibrance   Control = "vibrance"
	ControlSharpness  Control = "sharpness"
)

// Set edits one control and reclassifies the selection as custom.
func (s *Selection) Set(c Control, value float64) {
	switch c {
	case ControlBrightness:
		s.Vector.Brightness = value
	case ControlContrast:
		s.Vector.Contrast = value
	case ControlSaturation:
		s.Vector.Saturation = value
	case ControlVibrance:
		s.Vector.Vibrance = value
	case ControlSharpness:
		s.Vector.Sharpness = value
	default:
		return
	}
	s.Tag = CustomTag
}

// Filter returns the live-preview CSS filter for the current vector.
func (s Selection) Filter() string {
	return CSSFilter(s.Vector)
}
