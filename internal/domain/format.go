package domain

import (
	"path/filepath"
	"strings"
)

// MaxBatchImages caps one batch, enforced on both sides of the upload
// boundary.
const MaxBatchImages = 100

// allowedExtensions is the raster and raw photo format allow-list enforced on
// both sides of the upload boundary.
var allowedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".heic": {},
	".cr2": {}, ".nef": {}, ".arw": {}, ".dng": {}, ".raf": {},
}

// FormatAllowed reports whether the filename's extension is uploadable.
func FormatAllowed(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// AllowedFormats returns the allow-listed extensions, unordered.
func AllowedFormats() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	return out
}
