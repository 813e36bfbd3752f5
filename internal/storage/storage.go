package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/segyhp/loan-settlement/internal/domain"
)

// ErrUnsupportedType is returned for documents that are not PDF or images
var ErrUnsupportedType = errors.New("unsupported document type")

var allowedExtensions = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

// DocumentStore persists uploaded documents and returns a public URL for them
type DocumentStore interface {
	Upload(ctx context.Context, owner string, doc domain.Document) (string, error)
	Close() error
}

// ObjectName builds "<owner>_<unix seconds>.<ext>" with spaces replaced by underscores
func ObjectName(owner string, doc domain.Document, now time.Time) (string, error) {
	ext, err := extension(doc.Name)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%d.%s", strings.TrimSpace(owner), now.Unix(), ext)
	return strings.ReplaceAll(name, " ", "_"), nil
}

// ContentType prefers the uploader's declared type and falls back to the extension
func ContentType(doc domain.Document) string {
	if doc.ContentType != "" {
		return doc.ContentType
	}
	ext, err := extension(doc.Name)
	if err != nil {
		return "application/octet-stream"
	}
	return allowedExtensions[ext]
}

func extension(name string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
	return ext, nil
}
