package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/model"
)

// Sentinel errors for material uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidYear         = errors.New("invalid year")
	ErrCategoryRequired    = errors.New("category required")
)

// Allowed document extensions, lower-case without the dot.
var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
	"xls":  {},
	"xlsx": {},
}

// storagePrefix is the public directory the upload dir is served under.
const storagePrefix = "uploads"

var materialUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campus_material_uploads_total",
		Help: "Learning-material uploads by outcome.",
	},
	[]string{"result"},
)

// MaterialUpload is one incoming file with its classification fields.
type MaterialUpload struct {
	File     io.Reader
	Filename string
	Size     int64
	Category string
	Year     string
}

// MaterialService validates uploaded files, stages them on disk and
// records them in the learning-material document.
type MaterialService struct {
	docs      *DocumentService[model.MaterialList]
	uploadDir string
	maxBytes  int64
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
}

// NewMaterialService creates a new MaterialService.
func NewMaterialService(cfg *config.Config, docs *DocumentService[model.MaterialList], log zerolog.Logger) *MaterialService {
	return &MaterialService{
		docs:      docs,
		uploadDir: cfg.UploadDir,
		maxBytes:  cfg.MaxUploadBytes,
		now:       time.Now,
		newID:     shortID,
		log:       log.With().Str("component", "material_service").Logger(),
	}
}

// ValidateExtension accepts filenames whose extension is in the allow-list,
// compared case-insensitively.
func ValidateExtension(filename string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %q (allowed: pdf, doc, docx, xls, xlsx)", ErrUnsupportedFileType, ext)
	}
	return nil
}

// ClassifyYear turns the caller-supplied year into a bucket key.
func ClassifyYear(year string) (model.YearKey, error) {
	key, err := model.ParseYearKey(year)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	return key, nil
}

// Upload validates, stages and records a file. Every check runs before
// anything is written, and a staged file is removed again if recording it
// fails, so a rejected request leaves neither a file nor a record behind.
func (s *MaterialService) Upload(ctx context.Context, in MaterialUpload) (*model.Material, error) {
	material, err := s.upload(ctx, in)
	if err != nil {
		materialUploadsTotal.WithLabelValues(uploadResult(err)).Inc()
		return nil, err
	}
	materialUploadsTotal.WithLabelValues("ok").Inc()
	return material, nil
}

func (s *MaterialService) upload(ctx context.Context, in MaterialUpload) (*model.Material, error) {
	if err := ValidateExtension(in.Filename); err != nil {
		return nil, err
	}
	year, err := ClassifyYear(in.Year)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, ErrCategoryRequired
	}
	if in.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, in.Size, s.maxBytes)
	}

	originalName := filepath.Base(filepath.Clean("/" + in.Filename))
	storagePath, diskPath, err := s.Stage(in.File, originalName)
	if err != nil {
		return nil, err
	}

	material := model.Material{
		Category:     category,
		FilePath:     storagePath,
		OriginalName: originalName,
		UploadedAt:   s.now().UTC(),
	}

	_, err = s.docs.Modify(ctx, func(y *model.YearBuckets[model.MaterialList]) error {
		bucket := y.Bucket(year)
		*bucket = append(*bucket, material)
		return nil
	})
	if err != nil {
		if rmErr := os.Remove(diskPath); rmErr != nil {
			s.log.Error().Err(rmErr).Str("path", diskPath).Msg("failed to remove staged file")
		}
		return nil, err
	}

	s.log.Info().
		Str("year", string(year)).
		Str("category", category).
		Str("path", storagePath).
		Msg("material uploaded")
	return &material, nil
}

// Stage writes src under a time- and id-prefixed name in the upload directory.
// It returns the public storage path ("uploads/<name>") and the disk path.
// The copy is capped at the configured size so a lying size header cannot
// fill the disk.
func (s *MaterialService) Stage(src io.Reader, originalName string) (string, string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + s.newID() + "-" + originalName
	diskPath := filepath.Join(s.uploadDir, name)

	dst, err := os.OpenFile(diskPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("write file: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("close file: %w", closeErr)
	case n > s.maxBytes:
		err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(diskPath)
		return "", "", err
	}

	return storagePrefix + "/" + name, diskPath, nil
}

// shortID keeps names from the same millisecond apart.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func uploadResult(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFileType):
		return "unsupported_type"
	case errors.Is(err, ErrInvalidYear):
		return "invalid_year"
	case errors.Is(err, ErrCategoryRequired):
		return "invalid_category"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	default:
		return "error"
	}
}
