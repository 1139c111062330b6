package domain

import "testing"

func TestFormatAllowed(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.heic", "e.CR2", "f.nef", "g.arw", "h.dng", "i.raf"} {
		if !FormatAllowed(name) {
			t.Fatalf("%s should be allowed", name)
		}
	}
	for _, name := range []string{"a.gif", "b.txt", "c", "d.mp4"} {
		if FormatAllowed(name) {
			t.Fatalf("%s should be rejected", name)
		}
	}
}
