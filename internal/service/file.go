package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/storage"
)

const (
	FolderRequirements = "requirements"
	FolderProducts     = "products"
)

type FileService struct {
	storage        storage.Storage
	downloadExpiry time.Duration
}

func NewFileService(storage storage.Storage, downloadExpiry time.Duration) *FileService {
	return &FileService{
		storage:        storage,
		downloadExpiry: downloadExpiry,
	}
}

// Put stores an uploaded file under folder with a random name and returns
// its key. Validation is the caller's job.
func (s *FileService) Put(ctx context.Context, folder string, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := path.Join(folder, uuid.New().String()+ext)

	err = s.storage.Save(ctx, key, file, header.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return key, nil
}

// Remove deletes an object, logging instead of failing.
func (s *FileService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	err := s.storage.Delete(ctx, key)
	if err != nil {
		slog.Error("failed to delete file from storage", "error", err, "path", key)
	}
}

func (s *FileService) PublicURL(key string) string {
	return s.storage.PublicURL(key)
}

// KeyFromURL recovers the key of an object from its public URL. It reports
// false for URLs that point elsewhere.
func (s *FileService) KeyFromURL(url string) (string, bool) {
	base := strings.TrimSuffix(s.storage.PublicURL(""), "/")
	if url == "" || !strings.HasPrefix(url, base+"/") {
		return "", false
	}
	return strings.TrimPrefix(url, base+"/"), true
}

// DownloadURL returns a short-lived link to a private object.
func (s *FileService) DownloadURL(ctx context.Context, key string) (string, error) {
	return s.storage.SignedURL(ctx, key, s.downloadExpiry)
}
