package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/domain"
)

// LocalStore keeps documents on disk; used when no bucket is configured
type LocalStore struct {
	Dir string
	log *zap.Logger
	now func() time.Time
}

func NewLocalStore(dir string, log *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Dir: dir, log: log, now: time.Now}, nil
}

func (l *LocalStore) Close() error { return nil }

func (l *LocalStore) Upload(ctx context.Context, owner string, doc domain.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename, err := ObjectName(owner, doc, l.now())
	if err != nil {
		return "", err
	}

	path := filepath.Join(l.Dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(doc.Data); err != nil {
		return "", err
	}

	l.log.Info("Saved document locally", zap.String("path", path))

	return fmt.Sprintf("%s/%s", strings.TrimRight(l.Dir, "/"), filename), nil
}
