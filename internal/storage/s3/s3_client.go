// Package s3 keeps reference datasets and archived batch reports in an S3
// bucket (or any S3-compatible store such as MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gstaudit/internal/config"
	"gstaudit/internal/port"
)

const reportContentType = "text/csv; charset=utf-8"

// maxReferenceSize bounds a reference dataset download.
const maxReferenceSize = 64 << 20

type auditBucket struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
}

// NewS3Client returns the S3-backed AuditStorage. A custom Endpoint (MinIO,
// LocalStack) switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg *config.S3Config) (port.AuditStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &auditBucket{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
	}, nil
}

func (b *auditBucket) FetchReference(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("reference s3://%s/%s: %w", bucket, key, port.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("fetching reference s3://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxReferenceSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading reference s3://%s/%s: %w", bucket, key, err)
	}
	if len(data) > maxReferenceSize {
		return nil, fmt.Errorf("reference s3://%s/%s exceeds %d bytes", bucket, key, maxReferenceSize)
	}
	return data, nil
}

func (b *auditBucket) ArchiveReport(ctx context.Context, obj port.ReportObject) (*port.ArchivedReport, error) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = reportContentType
	}
	put := &s3.PutObjectInput{
		Bucket:             aws.String(obj.Bucket),
		Key:                aws.String(obj.Key),
		Body:               obj.Body,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(obj.Key))),
	}
	if obj.Size > 0 {
		put.ContentLength = aws.Int64(obj.Size)
	}
	out, err := b.uploader.Upload(ctx, put)
	if err != nil {
		return nil, fmt.Errorf("archiving report %s: %w", obj.Key, err)
	}
	return &port.ArchivedReport{
		Location: out.Location,
		ETag:     aws.ToString(out.ETag),
	}, nil
}

func (b *auditBucket) ReportURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presigning report %s: %w", key, err)
	}
	return req.URL, nil
}
