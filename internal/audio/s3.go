package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/starford/recall/internal/checksum"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	// PublicBaseURL, when set, is used for playback URLs instead of the API route.
	PublicBaseURL string
	// ProxyBaseURL is the API route prefix used when PublicBaseURL is empty.
	ProxyBaseURL string
}

// S3 implements Store on an S3-compatible object store.
type S3 struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3 builds an S3 store with static credentials.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("audio: s3 bucket is required")
	}
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3{client: s3.New(opts), cfg: cfg}, nil
}

// Put uploads the recording. The body is buffered so the SDK can sign a
// seekable payload; uploads are already size-capped by the API.
func (s *S3) Put(ctx context.Context, ref string, r io.Reader, contentType string) (Object, error) {
	if contentType == "" {
		contentType = ContentType(ref)
	}
	cr := checksum.NewReader(r)
	data, err := io.ReadAll(cr)
	if err != nil {
		return Object{}, fmt.Errorf("audio: read upload: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(ref),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("audio: s3 put %s: %w", ref, err)
	}
	return Object{
		Ref:         ref,
		URL:         s.URL(ref),
		Size:        cr.Size(),
		Checksum:    cr.Sum(),
		ContentType: contentType,
	}, nil
}

// Open streams the object body. Callers must close it.
func (s *S3) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("audio: s3 get %s: %w", ref, err)
	}
	return out.Body, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("audio: s3 delete %s: %w", ref, err)
	}
	return nil
}

// URL returns the public object URL when configured, else the API proxy route.
func (s *S3) URL(ref string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = s.cfg.ProxyBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
}
