// Package publish uploads comparison reports and fingerprint archives to
// S3-compatible object storage.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cutdiff/internal/config"
	"cutdiff/internal/logging"
	"cutdiff/internal/services"
)

// Content types for published objects.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeArchive = "application/zstd"
)

// Uploader is the subset of *minio.Client used for publishing.
type Uploader interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher writes objects under a bucket prefix.
type Publisher struct {
	client Uploader
	bucket string
	prefix string
	logger *slog.Logger
}

// New connects to the configured object store. It fails with
// services.ErrConfiguration when publishing is disabled or incomplete.
func New(cfg config.ObjectStore, logger *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "connect",
			"object_store.enabled is false", nil)
	}
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "connect",
			"object_store.endpoint and object_store.bucket must be set", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "connect", cfg.Endpoint, err)
	}
	return NewWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewWithClient builds a Publisher around an existing client.
func NewWithClient(client Uploader, bucket, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

// Key returns the object key name is stored under.
func (p *Publisher) Key(name string) string {
	return path.Join(p.prefix, name)
}

// Check verifies the endpoint answers and the bucket exists.
func (p *Publisher) Check(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "check bucket", p.bucket, err)
	}
	if !exists {
		return services.Wrap(services.ErrConfiguration, "publish", "check bucket",
			fmt.Sprintf("bucket %q does not exist", p.bucket), nil)
	}
	return nil
}

// PutBytes uploads data as name and returns the object key.
func (p *Publisher) PutBytes(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	return p.put(ctx, name, bytes.NewReader(data), int64(len(data)), contentType)
}

// PutFile uploads the file at filePath as name and returns the object key.
func (p *Publisher) PutFile(ctx context.Context, name, filePath, contentType string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "publish", "open", filePath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filePath, err)
	}
	return p.put(ctx, name, file, info.Size(), contentType)
}

func (p *Publisher) put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	key := p.Key(name)
	_, err := p.client.PutObject(ctx, p.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "upload",
			fmt.Sprintf("s3://%s/%s", p.bucket, key), err)
	}
	p.logger.Info("object published",
		logging.String("bucket", p.bucket),
		logging.String("key", key),
		logging.String("size", humanize.Bytes(uint64(max(size, 0)))),
	)
	return key, nil
}
