package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config contains S3 client settings. Empty keys fall back to the default
// AWS credential chain.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3API is the subset of the S3 client the storage uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3Storage serves s3://bucket/key locations.
type S3Storage struct {
	client S3API
}

// NewS3Storage returns an S3Storage using client.
func NewS3Storage(client S3API) *S3Storage {
	return &S3Storage{client: client}
}

// ParseS3 splits an s3:// location into bucket and key.
func ParseS3(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %s", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location needs a bucket and a key: %s", location)
	}
	return bucket, key, nil
}

// Open implements Storage.
func (s *S3Storage) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// Create buffers the object in memory and uploads it on Commit.
func (s *S3Storage) Create(ctx context.Context, location string) (Artifact, error) {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return nil, err
	}
	return &s3Artifact{ctx: ctx, client: s.client, bucket: bucket, key: key}, nil
}

// Exists implements Storage.
func (s *S3Storage) Exists(ctx context.Context, location string) (bool, error) {
	bucket, key, err := ParseS3(location)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, err
}

type s3Artifact struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
	buf    bytes.Buffer
	done   bool
}

func (a *s3Artifact) Write(p []byte) (int, error) {
	return a.buf.Write(p)
}

func (a *s3Artifact) Commit() error {
	if a.done {
		return nil
	}
	a.done = true
	_, err := a.client.PutObject(a.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.key),
		Body:          bytes.NewReader(a.buf.Bytes()),
		ContentLength: aws.Int64(int64(a.buf.Len())),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, a.key, err)
	}
	return nil
}

func (a *s3Artifact) Abort() error {
	a.done = true
	a.buf.Reset()
	return nil
}
