// Package storage implements the blob store over S3-compatible object
// storage using aws-sdk-go-v2. The client is built once at startup and
// shared; it holds no state besides the SDK's connection pooling.
package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/acme/imagestore/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Store holds the long-lived S3 and presign clients for one bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Store builds an S3Store from the server config. Static credentials
// and an optional custom BaseEndpoint cover MinIO/LocalStack setups.
func NewS3Store(ctx context.Context, c *sc.Config) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
		o.UsePathStyle = c.S3BaseEndpoint != ""
	})

	return &S3Store{
		client:  client,
		presign: newS3PresignClient(client),
		bucket:  c.S3Bucket,
	}, nil
}

// Put stores body under key with the given content type.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	return err
}

// Delete removes the object under key. S3 treats deleting a missing object
// as success.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}

// PresignGet mints a time-bounded GET URL for key. The object's existence
// is not checked; a GET against the URL surfaces that lazily.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
