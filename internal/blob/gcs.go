package blob

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
)

// GCSMirror writes payloads to a Cloud Storage bucket. When the bucket is
// unreachable it falls back to the local mirror and returns the local path,
// so a flaky network never fails a sync.
type GCSMirror struct {
	client   *storage.Client
	bucket   string
	fallback Mirror
	logger   *logging.Logger
}

func NewGCSMirror(ctx context.Context, bucket string, fallback Mirror, logger *logging.Logger) (*GCSMirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSMirror{client: client, bucket: bucket, fallback: fallback, logger: logger}, nil
}

func (m *GCSMirror) Write(ctx context.Context, path string, payload []byte) (string, error) {
	writer := m.client.Bucket(m.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = "application/json"

	_, writeErr := writer.Write(payload)
	closeErr := writer.Close()

	if writeErr == nil && closeErr == nil {
		return fmt.Sprintf("gs://%s/%s", m.bucket, path), nil
	}

	err := writeErr
	if err == nil {
		err = closeErr
	}
	if m.fallback == nil {
		return "", fmt.Errorf("write gs://%s/%s: %w", m.bucket, path, err)
	}

	m.logger.WarnContext(ctx, "gcs write failed, using local mirror fallback",
		"bucket", m.bucket, "path", path, "error", err)
	return m.fallback.Write(ctx, path, payload)
}

func (m *GCSMirror) Close() error {
	return m.client.Close()
}
