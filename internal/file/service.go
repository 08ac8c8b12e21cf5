package file

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aurastack/aura/internal/common/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxSizeMB caps uploads when no limit is configured.
const DefaultMaxSizeMB = 25

// allowedExtensions lists the file types the platform knows how to process.
var allowedExtensions = map[string]bool{
	".csv":     true,
	".json":    true,
	".xlsx":    true,
	".xls":     true,
	".txt":     true,
	".parquet": true,
}

// Metadata describes a stored upload.
type Metadata struct {
	FileID       string    `json:"file_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Extension    string    `json:"extension"`
	SizeBytes    int64     `json:"size_bytes"`
	SHA256       string    `json:"sha256"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Service stores uploaded files on disk and tracks their metadata.
type Service struct {
	logger  *zap.Logger
	dir     string
	maxSize int64

	mu    sync.RWMutex
	files map[string]*Metadata
}

// NewService creates the upload directory if needed.
func NewService(logger *zap.Logger, dir string, maxSizeMB int) (*Service, error) {
	if dir == "" {
		dir = "uploads"
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Service{
		logger:  logger.Named("file.service"),
		dir:     dir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		files:   make(map[string]*Metadata),
	}, nil
}

// Save validates and persists one upload. The declared size is checked
// up front when known; the read is capped regardless.
func (s *Service) Save(originalName string, declaredSize int64, r io.Reader) (*Metadata, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return nil, errorx.ErrUnsupportedMedia.
			WithMessage("file type %q is not supported", ext).
			WithDetail("allowed", allowedExtensionList())
	}
	if declaredSize > s.maxSize {
		return nil, errorx.ErrPayloadTooLarge.
			WithMessage("file exceeds the %d MB limit", s.maxSize/(1024*1024))
	}

	fileID := uuid.New().String()
	storedName := fileID + ext
	path := filepath.Join(s.dir, storedName)

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, hasher), io.LimitReader(r, s.maxSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return nil, errorx.ErrPayloadTooLarge.
			WithMessage("file exceeds the %d MB limit", s.maxSize/(1024*1024))
	}

	meta := &Metadata{
		FileID:       fileID,
		OriginalName: originalName,
		StoredName:   storedName,
		Extension:    ext,
		SizeBytes:    written,
		SHA256:       hex.EncodeToString(hasher.Sum(nil)),
		UploadedAt:   time.Now(),
	}

	s.mu.Lock()
	s.files[fileID] = meta
	s.mu.Unlock()

	s.logger.Info("file stored",
		zap.String("file_id", fileID),
		zap.String("name", originalName),
		zap.Int64("size_bytes", written))
	return meta, nil
}

// Get returns metadata for a stored file.
func (s *Service) Get(fileID string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.files[fileID]
	if !ok {
		return nil, errorx.NotFoundError("file", fileID)
	}
	return meta, nil
}

// Path returns the on-disk location of a stored file.
func (s *Service) Path(fileID string) (string, error) {
	meta, err := s.Get(fileID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, meta.StoredName), nil
}

// List returns metadata for all stored files, newest first.
func (s *Service) List() []*Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Metadata, 0, len(s.files))
	for _, meta := range s.files {
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result
}

// Delete removes a stored file and its metadata.
func (s *Service) Delete(fileID string) error {
	s.mu.Lock()
	meta, ok := s.files[fileID]
	if ok {
		delete(s.files, fileID)
	}
	s.mu.Unlock()
	if !ok {
		return errorx.NotFoundError("file", fileID)
	}

	if err := os.Remove(filepath.Join(s.dir, meta.StoredName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func allowedExtensionList() []string {
	result := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		result = append(result, ext)
	}
	sort.Strings(result)
	return result
}
