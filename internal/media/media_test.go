package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

type fakeStorage struct {
	objects map[string][]byte
	types   map[string]string
	failOn  string // substring of key that makes Write fail
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://cdn.test/" + key, nil
}

func testImageBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	st := newFakeStorage()
	svc := NewService(st, DefaultConfig())

	data := testImageBytes(t, 800, 600)
	m, err := svc.Upload(context.Background(), "alice", "photo.png", "image/png", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if m.Kind != domain.MediaImage {
		t.Fatalf("expected image kind, got %s", m.Kind)
	}
	if m.Metadata.Width != 800 || m.Metadata.Height != 600 {
		t.Fatalf("unexpected dimensions: %dx%d", m.Metadata.Width, m.Metadata.Height)
	}
	if m.Metadata.Size != int64(len(data)) {
		t.Fatalf("unexpected size: %d", m.Metadata.Size)
	}
	if m.URL == "" || m.Thumbnail == "" {
		t.Fatalf("expected url and thumbnail, got %q / %q", m.URL, m.Thumbnail)
	}
	// Original plus thumbnail.
	if len(st.objects) != 2 {
		t.Fatalf("expected 2 stored objects, got %d", len(st.objects))
	}
}

func TestUploadVideoSkipsThumbnail(t *testing.T) {
	st := newFakeStorage()
	svc := NewService(st, DefaultConfig())

	data := []byte("not really a video but opaque bytes")
	m, err := svc.Upload(context.Background(), "alice", "clip.mp4", "video/mp4", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if m.Kind != domain.MediaVideo {
		t.Fatalf("expected video kind, got %s", m.Kind)
	}
	if m.Thumbnail != "" {
		t.Fatal("video uploads must not get a thumbnail")
	}
	if m.Metadata.Width != 0 || m.Metadata.Height != 0 {
		t.Fatal("video uploads must not carry image dimensions")
	}
	if len(st.objects) != 1 {
		t.Fatalf("expected 1 stored object, got %d", len(st.objects))
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := NewService(newFakeStorage(), DefaultConfig())
	_, err := svc.Upload(context.Background(), "alice", "doc.pdf", "application/pdf", 10, strings.NewReader("0123456789"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSizeBytes = 16
	svc := NewService(newFakeStorage(), cfg)

	data := bytes.Repeat([]byte("a"), 32)
	_, err := svc.Upload(context.Background(), "alice", "clip.mp4", "video/mp4", int64(len(data)), bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// A lying declared size is caught after reading the body.
	_, err = svc.Upload(context.Background(), "alice", "clip.mp4", "video/mp4", 8, bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for undeclared oversize body, got %v", err)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	st := newFakeStorage()
	st.failOn = "uploads/"
	svc := NewService(st, DefaultConfig())

	_, err := svc.Upload(context.Background(), "alice", "clip.mp4", "video/mp4", 5, strings.NewReader("bytes"))
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if len(st.objects) != 0 {
		t.Fatal("no partial objects expected after write failure")
	}
}
