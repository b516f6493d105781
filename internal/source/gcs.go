package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSObject is a Source backed by a Google Cloud Storage object addressed by
// a gs:// URI. It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
type GCSObject struct {
	uri    string
	bucket string
	object string
}

// NewGCSObject parses a gs://bucket/path/to/object URI.
func NewGCSObject(uri string) (*GCSObject, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return nil, fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return &GCSObject{uri: uri, bucket: parts[0], object: parts[1]}, nil
}

// Open returns a reader over the object bytes. Closing the reader also
// closes the underlying storage client.
func (o *GCSObject) Open(ctx context.Context) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	rc, err := client.Bucket(o.bucket).Object(o.object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("reading object %s/%s: %w", o.bucket, o.object, err)
	}
	return &objectReader{ReadCloser: rc, client: client}, nil
}

type objectReader struct {
	io.ReadCloser
	client *storage.Client
}

func (r *objectReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteAll overwrites the object in a single upload. GCS object writes are
// atomic, so readers see either the old or the new document.
func (o *GCSObject) WriteAll(ctx context.Context, data []byte) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(o.bucket).Object(o.object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

func (o *GCSObject) String() string { return o.uri }
