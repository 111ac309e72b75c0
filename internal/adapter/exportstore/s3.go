package exportstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/burenotti/go_routines_backend/internal/adapter/interchange"
	"github.com/burenotti/go_routines_backend/internal/config"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"
	"unicode"
)

var (
	ErrUnsafeFilename = errors.New("unsafe file name")
)

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type GetPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Archive struct {
	client  ObjectPutter
	presign GetPresigner
	bucket  string
	prefix  string
	linkTTL time.Duration
	logger  *slog.Logger
}

func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*S3Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("export archive initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)

	return NewArchive(client, s3.NewPresignClient(client), cfg.Bucket, cfg.Prefix, cfg.LinkTTL, logger), nil
}

func NewArchive(
	client ObjectPutter,
	presign GetPresigner,
	bucket, prefix string,
	linkTTL time.Duration,
	logger *slog.Logger,
) *S3Archive {
	return &S3Archive{
		client:  client,
		presign: presign,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		linkTTL: linkTTL,
		logger:  logger,
	}
}

func (a *S3Archive) Store(ctx context.Context, trainerID, routineID string, f *interchange.File) (string, error) {
	key, err := ObjectKey(trainerID, routineID, f.Filename)
	if err != nil {
		return "", err
	}
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(f.Content),
		ContentLength:      aws.Int64(int64(len(f.Content))),
		ContentType:        aws.String(f.ContentType),
		ContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename})),
	})
	if err != nil {
		a.logger.Error("failed to upload export", "key", key, "error", err)
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if a.presign == nil {
		return "s3://" + a.bucket + "/" + key, nil
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.linkTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// File names come from routine titles, refuse anything that escapes its folder.
func ObjectKey(trainerID, routineID, filename string) (string, error) {
	for _, part := range []string{trainerID, routineID, filename} {
		if err := checkSegment(part); err != nil {
			return "", err
		}
	}
	return path.Join(trainerID, routineID, filename), nil
}

func checkSegment(s string) error {
	switch {
	case strings.TrimSpace(s) == "":
		return fmt.Errorf("%w: empty name", ErrUnsafeFilename)
	case s == "." || strings.Contains(s, ".."):
		return fmt.Errorf("%w: %q contains a relative path", ErrUnsafeFilename, s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrUnsafeFilename, s)
	case strings.IndexFunc(s, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: %q contains control characters", ErrUnsafeFilename, s)
	}
	return nil
}
