// Package storage uploads answered files (file questions) to an S3-compatible
// bucket and hands back the URL stored inside the answer document.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Authority98/feedo-sub000/internal/models"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL is the externally reachable root for stored objects; it
	// defaults to the endpoint itself.
	PublicBaseURL string
}

type FileStore struct {
	client  *minio.Client
	bucket  string
	baseURL string

	ensureOnce sync.Once
	ensureErr  error
}

func NewFileStore(cfg Config) (*FileStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: endpoint and bucket required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init client: %w", err)
	}
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + cfg.Endpoint
	}
	return &FileStore{client: client, bucket: cfg.Bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (fs *FileStore) ensureBucket(ctx context.Context) error {
	fs.ensureOnce.Do(func() {
		exists, err := fs.client.BucketExists(ctx, fs.bucket)
		if err != nil {
			fs.ensureErr = fmt.Errorf("storage: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := fs.client.MakeBucket(ctx, fs.bucket, minio.MakeBucketOptions{}); err != nil {
			fs.ensureErr = fmt.Errorf("storage: create bucket: %w", err)
		}
	})
	return fs.ensureErr
}

// Upload stores one file and returns the url/name/type triple a file answer
// carries. Object keys are date-prefixed so buckets stay browsable.
func (fs *FileStore) Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (*models.FileAnswer, error) {
	if err := fs.ensureBucket(ctx); err != nil {
		return nil, err
	}
	ext := path.Ext(name)
	key := fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01/02"), strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := fs.client.PutObject(ctx, fs.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("storage: put object: %w", err)
	}
	return &models.FileAnswer{
		URL:  fs.baseURL + "/" + fs.bucket + "/" + key,
		Name: name,
		Type: contentType,
	}, nil
}
