package gcsuploader

import "context"

// StorageService provides an interface for statement PDF storage
// operations, enabling mocks in pipeline and handler tests.
type StorageService interface {
	// UploadBytes stores a payload and returns its gs:// URI.
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) (string, error)

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string
}

// GCSStorageService is the concrete StorageService backed by Google
// Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// UploadBytes delegates to the package-level UploadBytes function.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) (string, error) {
	return UploadBytes(ctx, bucketName, objectName, data)
}

// FetchFromGCS delegates to the package-level FetchFromGCS function.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

// ExtractFilenameFromGCSURI delegates to the package-level function.
func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}
