package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config addresses the bucket reports are copied into.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // non-empty for MinIO/LocalStack; switches to path-style
	AccessKey string
	SecretKey string
}

// Uploader is the slice of manager.Uploader the publisher needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewS3Uploader builds a multipart uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*manager.Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return manager.NewUploader(s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

// S3Sink writes through an inner file sink and then copies the file to S3.
// It returns the local path; the object URL is logged.
type S3Sink struct {
	inner    Sink
	uploader Uploader
	cfg      S3Config
	logger   *slog.Logger
}

func NewS3Sink(inner Sink, uploader Uploader, cfg S3Config, logger *slog.Logger) *S3Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Sink{inner: inner, uploader: uploader, cfg: cfg, logger: logger}
}

func (s *S3Sink) Write(ctx context.Context, in Input) (string, error) {
	local, err := s.inner.Write(ctx, in)
	if err != nil {
		return "", err
	}
	f, err := os.Open(local)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", local, err)
	}
	defer func() { _ = f.Close() }()

	key := ObjectKey(s.cfg.Prefix, in.RunID, filepath.Base(local))
	if _, err := s.upload(ctx, key, f, contentType(local)); err != nil {
		return "", err
	}
	return local, nil
}

func (s *S3Sink) upload(ctx context.Context, key string, body io.Reader, ct string) (string, error) {
	start := time.Now()
	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ct),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	s.logger.Info("report.s3.ok",
		"bucket", s.cfg.Bucket,
		"key", key,
		"location", result.Location,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result.Location, nil
}

// ObjectKey joins prefix, run and file name with forward slashes.
func ObjectKey(prefix, runID, name string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	if runID != "" {
		parts = append(parts, runID)
	}
	parts = append(parts, name)
	return path.Join(parts...)
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
