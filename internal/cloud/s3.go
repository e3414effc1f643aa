package cloud

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const presignTTL = 24 * time.Hour

// putObjectAPI is the part of *s3.Client the report archive uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client stores exported distribution reports.
type S3Client struct {
	svc     putObjectAPI
	presign func(ctx context.Context, bucket, key string) (string, error)
	bucket  string
}

func NewS3Client(cfg aws.Config, bucket string) *S3Client {
	svc := s3.NewFromConfig(cfg)
	pc := s3.NewPresignClient(svc)
	return &S3Client{
		svc:    svc,
		bucket: bucket,
		presign: func(ctx context.Context, bucket, key string) (string, error) {
			req, err := pc.PresignGetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			}, s3.WithPresignExpires(presignTTL))
			if err != nil {
				return "", err
			}
			return req.URL, nil
		},
	}
}

// UploadReport stores data under key and returns a presigned download URL.
func (c *S3Client) UploadReport(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload report to s3: %w", err)
	}

	url, err := c.presign(ctx, c.bucket, key)
	if err != nil {
		return "", fmt.Errorf("presign report url: %w", err)
	}
	return url, nil
}
