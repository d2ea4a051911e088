package upload

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultMaxSize = 10 << 20
	sniffLen       = 512
)

// AllowedMimeTypes defines which file types are accepted.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// LocalStorage keeps uploaded images in a flat directory on disk.
type LocalStorage struct {
	baseDir    string
	staticBase string
	maxSize    int64
}

func NewLocalStorage(baseDir, staticBase string, maxSize int64) *LocalStorage {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &LocalStorage{
		baseDir:    baseDir,
		staticBase: strings.TrimRight(staticBase, "/"),
		maxSize:    maxSize,
	}
}

func (s *LocalStorage) Dir() string { return s.baseDir }

// Save writes r under a unique name derived from name and returns the
// stored filename.
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return "", ErrEmptyFile
	}

	mimeType := strings.Split(http.DetectContentType(head), ";")[0]
	if !AllowedMimeTypes[mimeType] {
		return "", ErrInvalidMimeType
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || mimeToExt(mimeType) != normalizeExt(ext) {
		ext = mimeToExt(mimeType)
	}
	filename := fmt.Sprintf("%s_%s%s", uuid.New().String(), SanitizeName(name), ext)
	absPath := filepath.Join(s.baseDir, filename)

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	// one byte over the cap tells us the source was too large
	n, err := io.Copy(dst, io.LimitReader(contextReader{ctx: ctx, r: br}, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if n > s.maxSize {
		_ = os.Remove(absPath)
		return "", ErrFileTooLarge
	}

	return filename, nil
}

// URL returns the public path for a stored filename.
func (s *LocalStorage) URL(filename string) string {
	if filename == "" {
		return ""
	}
	return s.staticBase + "/" + filename
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// SanitizeName strips directories and the extension and keeps only
// [A-Za-z0-9-], so the result is safe as a path component.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if strings.Trim(name, "_") == "" {
		return "image"
	}
	return name
}

func normalizeExt(ext string) string {
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
