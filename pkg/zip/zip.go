// Package zip bundles enhanced renditions into a single downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
)

type Entry struct {
	Filename string
	Data     []byte
}

// Archive writes the entries into one zip archive. Entries that cannot be
// created are skipped rather than failing the whole archive.
func Archive(entries []Entry) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
