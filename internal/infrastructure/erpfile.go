package infrastructure

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/lalitraj881/Fire-Tech-Shield-V2-sub000/internal/erp"
)

// ERPFileStorage is the default evidence backend: photos go through the
// ERP's upload_file endpoint and live in its file store.
type ERPFileStorage struct {
	client  *erp.Client
	baseURL string

	// urls remembers key -> file_url so GetURL can resolve what Upload
	// produced without a second round trip. Uploads run concurrently.
	mu   sync.Mutex
	urls map[string]string
}

func NewERPFileStorage(client *erp.Client, baseURL string) *ERPFileStorage {
	return &ERPFileStorage{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		urls:    make(map[string]string),
	}
}

func (s *ERPFileStorage) Upload(ctx context.Context, key string, data []byte) (string, error) {
	// The ERP flattens paths; keep only the final segment as the filename.
	fileURL, err := s.client.UploadFile(ctx, path.Base(key), data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.urls[key] = fileURL
	s.mu.Unlock()
	return key, nil
}

func (s *ERPFileStorage) GetURL(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	fileURL, ok := s.urls[key]
	s.mu.Unlock()
	if !ok {
		fileURL = "/files/" + path.Base(key)
	}
	if strings.HasPrefix(fileURL, "http") {
		return fileURL, nil
	}
	return s.baseURL + fileURL, nil
}
