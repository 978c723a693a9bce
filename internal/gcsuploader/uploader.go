// Package gcsuploader stores and retrieves statement PDFs in Google
// Cloud Storage.
package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// UploadBytes uploads a payload to a GCS bucket under the given object
// name and returns the gs:// URI. It assumes Application Default
// Credentials are configured.
func UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("UploadBytes: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadBytes: writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadBytes: finalizing upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucketName, objectName), nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	// gcsURI example: gs://my-bucket/path/to/file.pdf
	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	bucketName := parts[0]
	objectPath := parts[1]

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: creating storage client: %w", err)
	}
	defer storageClient.Close()

	rc, err := storageClient.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}

	return data, nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}
