// backend/scraper/snapshot.go
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gewnthar/dentalportal/backend/config"
)

// Archiver keeps a copy of every raw export that was downloaded.
type Archiver interface {
	Archive(ctx context.Context, name string, body []byte) error
}

// SnapshotName builds a sortable file name for a download made at t.
func SnapshotName(source string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", source, t.UTC().Format("20060102T150405Z"), ext)
}

// LocalArchiver writes snapshots into a directory.
type LocalArchiver struct {
	Dir string
}

func (a *LocalArchiver) Archive(_ context.Context, name string, body []byte) error {
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", a.Dir, err)
	}
	dst := filepath.Join(a.Dir, name)
	if err := os.WriteFile(dst, body, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", dst, err)
	}
	return nil
}

// S3Archiver uploads snapshots to a bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver builds an S3 client from the default credential chain.
// A custom endpoint switches to path-style addressing for MinIO.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archiver{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, name string, body []byte) error {
	key := path.Join(a.prefix, name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}

func contentType(name string) string {
	if path.Ext(name) == ".html" {
		return "text/html"
	}
	return "text/csv"
}

// NewArchiver returns the archiver selected by cfg.Mode, or nil for "none".
func NewArchiver(ctx context.Context, cfg config.ArchiveConfig) (Archiver, error) {
	switch cfg.Mode {
	case "", "none":
		return nil, nil
	case "local":
		return &LocalArchiver{Dir: cfg.LocalDir}, nil
	case "s3":
		a, err := NewS3Archiver(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported archive mode %q", cfg.Mode)
	}
}
