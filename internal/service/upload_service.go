package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/imaging"
)

// PublicUploadPrefix is the URL prefix under which stored images are served.
const PublicUploadPrefix = "/uploads"

type uploadFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

// UploadConfig bounds attachment intake.
type UploadConfig struct {
	MaxFileSize    int64
	MaxFiles       int
	AllowedMIMEs   []string
	ResizeMaxWidth int
	JPEGQuality    int
}

// UploadService validates and persists image attachments.
type UploadService struct {
	storage uploadFileStorage
	logger  *zap.Logger
	cfg     UploadConfig
	mimeSet map[string]struct{}
}

// NewUploadService constructs the service with defaults.
func NewUploadService(storage uploadFileStorage, logger *zap.Logger, cfg UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 4
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/gif"}
	}
	if cfg.ResizeMaxWidth <= 0 {
		cfg.ResizeMaxWidth = 1200
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 80
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadService{storage: storage, logger: logger, cfg: cfg, mimeSet: mimeSet}
}

// SaveAll validates and persists every attachment, returning the public
// paths in submission order. Persistence is all-or-nothing: if any file
// fails, the ones already written for this request are removed.
func (s *UploadService) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	if len(files) > s.cfg.MaxFiles {
		return nil, appErrors.Clone(appErrors.ErrUpload, fmt.Sprintf("file count exceeds limit of %d", s.cfg.MaxFiles))
	}
	stored := make([]string, 0, len(files))
	for _, header := range files {
		name, err := s.saveOne(header)
		if err != nil {
			s.RemoveAll(stored)
			return nil, err
		}
		stored = append(stored, name)
	}
	public := make([]string, len(stored))
	for i, name := range stored {
		public[i] = path.Join(PublicUploadPrefix, name)
	}
	return public, nil
}

// RemoveAll deletes stored files by public path, best effort.
func (s *UploadService) RemoveAll(paths []string) {
	for _, p := range paths {
		if err := s.storage.Delete(path.Base(p)); err != nil {
			s.logger.Sugar().Warnw("failed to remove uploaded file", "file", p, "error", err)
		}
	}
}

func (s *UploadService) saveOne(header *multipart.FileHeader) (string, error) {
	if header.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrUpload, fmt.Sprintf("file exceeds size limit of %dMB", s.cfg.MaxFileSize/1024/1024))
	}

	file, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	defer file.Close() //nolint:errcheck

	mimeType, err := s.detectMime(file)
	if err != nil {
		return "", err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return "", appErrors.Clone(appErrors.ErrUpload, "unsupported file type")
	}

	name := uniqueFilename(header.Filename)
	if _, err := s.storage.SaveStream(name, file); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist upload")
	}

	finalPath, err := imaging.NormalizeJPEG(s.storage.Path(name), s.cfg.ResizeMaxWidth, s.cfg.JPEGQuality)
	if err != nil {
		_ = s.storage.Delete(name)
		return "", appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "failed to process image")
	}
	return filepath.Base(finalPath), nil
}

// detectMime sniffs the payload bytes. The declared Content-Type header is
// client-controlled and is never trusted.
func (s *UploadService) detectMime(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect upload")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind upload")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrUpload, "empty file")
	}
	return http.DetectContentType(buf[:n]), nil
}

// uniqueFilename builds a timestamp-plus-random name preserving the
// original extension, so concurrent submissions cannot collide.
func uniqueFilename(original string) string {
	var raw [4]byte
	suffix := time.Now().UnixNano() % 1e9
	if _, err := rand.Read(raw[:]); err == nil {
		suffix = int64(binary.BigEndian.Uint32(raw[:])) % 1e9
	}
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), suffix, ext)
}
