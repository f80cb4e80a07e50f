package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies backup archives to an S3 bucket.
type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewUploader creates an uploader using ambient AWS credentials.
func NewUploader(ctx context.Context, bucket, prefix, region string) (*Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Uploader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// NewUploaderWithClient creates an uploader backed by the given client.
func NewUploaderWithClient(client PutObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Upload copies one backup archive to the bucket and returns its key.
func (u *Uploader) Upload(ctx context.Context, meta Metadata) (string, error) {
	f, err := os.Open(meta.Archive)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	key := path.Join(u.prefix, filepath.Base(meta.Archive))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", meta.ID, u.bucket, key, err)
	}
	return key, nil
}
