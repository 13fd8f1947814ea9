package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/acme/imagestore/internal/server/config"
)

func testConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.S3Bucket = "test-bucket"
	return cfg
}

func newStoreWithSeams(t *testing.T) *S3Store {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewClient := newS3ClientFromConfig
	origNewPresign := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewClient
		newS3PresignClient = origNewPresign
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	store, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)
	return store
}

func TestNewS3Store_ConfigLoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}

	_, err := NewS3Store(context.Background(), testConfig())
	require.Error(t, err)
}

func TestPut_SendsBucketKeyAndContentType(t *testing.T) {
	store := newStoreWithSeams(t)

	orig := putObject
	t.Cleanup(func() { putObject = orig })

	var gotIn *s3.PutObjectInput
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		gotIn = in
		return &s3.PutObjectOutput{}, nil
	}

	err := store.Put(context.Background(), "images/img-1", []byte("1234"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, gotIn)
	assert.Equal(t, "test-bucket", *gotIn.Bucket)
	assert.Equal(t, "images/img-1", *gotIn.Key)
	assert.Equal(t, "image/png", *gotIn.ContentType)
}

func TestPut_Error(t *testing.T) {
	store := newStoreWithSeams(t)

	orig := putObject
	t.Cleanup(func() { putObject = orig })

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("s3 down")
	}

	err := store.Put(context.Background(), "images/img-1", nil, "image/png")
	require.Error(t, err)
}

func TestDelete_SendsBucketAndKey(t *testing.T) {
	store := newStoreWithSeams(t)

	orig := deleteObject
	t.Cleanup(func() { deleteObject = orig })

	var gotIn *s3.DeleteObjectInput
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		gotIn = in
		return &s3.DeleteObjectOutput{}, nil
	}

	err := store.Delete(context.Background(), "images/img-1")
	require.NoError(t, err)
	require.NotNil(t, gotIn)
	assert.Equal(t, "test-bucket", *gotIn.Bucket)
	assert.Equal(t, "images/img-1", *gotIn.Key)
}

func TestPresignGet_ReturnsURL(t *testing.T) {
	store := newStoreWithSeams(t)

	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	var gotKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://s3.example/signed"}, nil
	}

	url, err := store.PresignGet(context.Background(), "images/img-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/signed", url)
	assert.Equal(t, "images/img-1", gotKey)
}

func TestPresignGet_Error(t *testing.T) {
	store := newStoreWithSeams(t)

	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("signer broken")
	}

	_, err := store.PresignGet(context.Background(), "images/img-1", time.Hour)
	require.Error(t, err)
}
