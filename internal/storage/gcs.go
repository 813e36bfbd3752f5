package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/domain"
)

// GCSStore writes documents to a Cloud Storage bucket
type GCSStore struct {
	Client        *storage.Client
	BucketName    string
	PublicBaseURL string
	log           *zap.Logger
	now           func() time.Time
}

func NewGCSStore(ctx context.Context, bucketName, publicBaseURL string, log *zap.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return newGCSStore(client, bucketName, publicBaseURL, log), nil
}

func newGCSStore(client *storage.Client, bucketName, publicBaseURL string, log *zap.Logger) *GCSStore {
	return &GCSStore{
		Client:        client,
		BucketName:    bucketName,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
		now:           time.Now,
	}
}

func (g *GCSStore) Close() error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Close()
}

func (g *GCSStore) Upload(ctx context.Context, owner string, doc domain.Document) (string, error) {
	objectName, err := ObjectName(owner, doc, g.now())
	if err != nil {
		return "", err
	}

	object := g.Client.Bucket(g.BucketName).Object(objectName)
	writer := object.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = ContentType(doc)

	if _, err := writer.Write(doc.Data); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	g.log.Info("Uploaded document to bucket",
		zap.String("bucket", g.BucketName),
		zap.String("object", objectName),
		zap.Int("bytes", len(doc.Data)),
	)

	return fmt.Sprintf("%s/%s/%s", g.PublicBaseURL, g.BucketName, objectName), nil
}
