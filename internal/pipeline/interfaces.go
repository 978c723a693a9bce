package pipeline

import "context"

// StorageService is an interface for statement PDF storage operations.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// TextExtractor turns PDF bytes into per-page text for the parser.
type TextExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}
