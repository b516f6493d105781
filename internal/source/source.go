// Package source abstracts where the input CSV and the output report live.
// A Source is one readable, atomically replaceable document.
package source

import (
	"context"
	"io"
	"strings"
)

// Source is a single document the pipeline reads or rewrites.
type Source interface {
	// Open returns a reader over the current contents.
	Open(ctx context.Context) (io.ReadCloser, error)
	// WriteAll atomically replaces the contents. Readers never observe a
	// partial document.
	WriteAll(ctx context.Context, data []byte) error
	// String returns the address the source was resolved from.
	String() string
}

// Resolve picks a driver from the path shape: gs:// URIs resolve to GCS
// objects, everything else to local files.
func Resolve(path string) (Source, error) {
	if strings.HasPrefix(path, "gs://") {
		return NewGCSObject(path)
	}
	return NewLocalFile(path), nil
}
