// Package media validates and stores chat attachments. Images are
// decoded to capture their dimensions and get a JPEG thumbnail; video
// and audio are stored as-is.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/pkg/log"
	"github.com/Anselwang99/mateFinder/pkg/storage"
)

var (
	ErrTooLarge        = errors.New("file exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrUpload wraps storage failures so callers can map them to an
	// upload-specific response instead of a generic internal error.
	ErrUpload = errors.New("upload failed")
)

type Config struct {
	MaxSizeBytes  int64         `mapstructure:"max_size_bytes"`
	ThumbnailSize int           `mapstructure:"thumbnail_size"`
	JpegQuality   int           `mapstructure:"jpeg_quality"`
	URLTTL        time.Duration `mapstructure:"url_ttl"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

func DefaultConfig() Config {
	return Config{
		MaxSizeBytes:  20 << 20,
		ThumbnailSize: 320,
		JpegQuality:   80,
		URLTTL:        24 * time.Hour,
		KeyPrefix:     "uploads",
	}
}

type Service struct {
	storage storage.Storage
	cfg     Config
}

func NewService(st storage.Storage, cfg Config) *Service {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = DefaultConfig().MaxSizeBytes
	}
	if cfg.ThumbnailSize <= 0 {
		cfg.ThumbnailSize = DefaultConfig().ThumbnailSize
	}
	if cfg.JpegQuality <= 0 {
		cfg.JpegQuality = DefaultConfig().JpegQuality
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultConfig().URLTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Service{storage: st, cfg: cfg}
}

// Upload validates the attachment, writes it to storage, and returns a
// media descriptor ready to attach to a message. Nothing is persisted
// to any chat here; the caller appends the message separately once the
// upload has succeeded.
func (s *Service) Upload(ctx context.Context, ownerID, filename, contentType string, size int64, r io.Reader) (*domain.Media, error) {
	kind, ok := domain.MediaKindFromContentType(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if size > s.cfg.MaxSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxSizeBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	media := &domain.Media{
		Kind: kind,
		Metadata: domain.MediaMetadata{
			Size:     int64(len(data)),
			MimeType: contentType,
		},
	}

	key := s.objectKey(ownerID, filename)

	if kind == domain.MediaImage {
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		bounds := img.Bounds()
		media.Metadata.Width = bounds.Dx()
		media.Metadata.Height = bounds.Dy()

		thumb := imaging.Fit(img, s.cfg.ThumbnailSize, s.cfg.ThumbnailSize, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(s.cfg.JpegQuality)); err != nil {
			return nil, fmt.Errorf("encode thumbnail: %w", err)
		}

		thumbKey := key[:len(key)-len(filepath.Ext(key))] + "_thumb.jpg"
		if err := s.storage.Write(ctx, thumbKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpload, err)
		}
		thumbURL, err := s.storage.GetURL(ctx, thumbKey, s.cfg.URLTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpload, err)
		}
		media.Thumbnail = thumbURL
	}

	if err := s.storage.Write(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	url, err := s.storage.GetURL(ctx, key, s.cfg.URLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	media.URL = url

	lg := log.L()
	lg.Info().
		Str(log.FieldUserID, ownerID).
		Str("key", key).
		Str("kind", string(kind)).
		Int64("size", media.Metadata.Size).
		Msg("media uploaded")

	return media, nil
}

func (s *Service) objectKey(ownerID, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("%s/%s/%s%s", s.cfg.KeyPrefix, ownerID, uuid.New().String(), ext)
}
