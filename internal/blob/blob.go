// Package blob wraps an S3-compatible object store behind put/get/sign
// operations keyed under a claim-scoped prefix. URIs use the blob://
// scheme encoding bucket and key.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clearclaims/claimtrail/internal/config"
)

// ErrNotConfigured is returned when no bucket is configured. Callers are
// expected to fail their whole operation rather than partially succeed.
var ErrNotConfigured = errors.New("object storage not configured")

// URIScheme prefixes every storage URI the pipeline writes.
const URIScheme = "blob://"

// ObjectInfo is the metadata returned by Head.
type ObjectInfo struct {
	ContentType string
	Size        int64
	ETag        string
}

// Store is a thin, stateless wrapper around one bucket.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	ttl     time.Duration
}

// New builds a Store from configuration. Returns ErrNotConfigured when the
// bucket is absent so callers fail fast at the point of use.
func New(ctx context.Context, cfg config.Config) (*Store, error) {
	if !cfg.StorageConfigured() {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.S3Bucket,
		prefix:  strings.Trim(cfg.KeyPrefix, "/"),
		ttl:     config.ClampTTL(cfg.SignedURLTTL),
	}, nil
}

// Key builds a claim-scoped object key under the configured prefix.
func (s *Store) Key(claimID string, parts ...string) string {
	all := append([]string{s.prefix, "claims", claimID}, parts...)
	return path.Join(all...)
}

// PutBytes uploads a payload and returns its blob:// URI.
func (s *Store) PutBytes(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return URIScheme + s.bucket + "/" + key, nil
}

// PutText uploads a text payload.
func (s *Store) PutText(ctx context.Context, key, text, contentType string) (string, error) {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	return s.PutBytes(ctx, key, []byte(text), contentType, nil)
}

// GetBytes fetches an object by its blob:// URI.
func (s *Store) GetBytes(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Head returns object metadata for a blob:// URI.
func (s *Store) Head(ctx context.Context, uri string) (ObjectInfo, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return ObjectInfo{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("head %s: %w", uri, err)
	}
	info := ObjectInfo{
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}
	return info, nil
}

// SignedURL generates a time-limited GET URL for a blob:// URI. A zero ttl
// uses the configured default; all TTLs are clamped to [60s, 86400s].
func (s *Store) SignedURL(ctx context.Context, uri string, ttl time.Duration) (string, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if ttl == 0 {
		ttl = s.ttl
	}
	ttl = config.ClampTTL(ttl)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", uri, err)
	}
	return req.URL, nil
}

// ParseURI splits a blob:// URI into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, URIScheme)
	if !ok {
		return "", "", fmt.Errorf("not a %s URI: %q", URIScheme, uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed storage URI %q", uri)
	}
	return bucket, key, nil
}
