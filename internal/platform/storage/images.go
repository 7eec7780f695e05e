package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrObjectNotFound is returned by Delete when nothing exists at the path.
var ErrObjectNotFound = errors.New("storage: object not found")

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, object, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, object string) error
}

// GCSStore writes images to a public Cloud Storage bucket.
type GCSStore struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewGCSStore constructs a bucket-backed image store.
func NewGCSStore(client *gcs.Client, bucket string) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: gcs client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	return &GCSStore{client: client, bucket: bucket, baseURL: "https://storage.googleapis.com"}, nil
}

var errInvalidBucket = errors.New("storage: bucket name is required")

func (s *GCSStore) Put(ctx context.Context, object, contentType string, data []byte) (string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", errors.New("storage: object name is required")
	}
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize %s: %w", object, err)
	}
	return s.PublicURL(object), nil
}

func (s *GCSStore) Delete(ctx context.Context, object string) error {
	err := s.client.Bucket(s.bucket).Object(object).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", object, err)
	}
	return nil
}

// PublicURL is the anonymous read URL for object.
func (s *GCSStore) PublicURL(object string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, strings.TrimPrefix(object, "/"))
}

// CloudinaryStore uploads images to Cloudinary; object paths become public ids.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStore parses a cloudinary:// URL.
func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(strings.TrimSpace(cloudinaryURL))
	if err != nil {
		return nil, fmt.Errorf("storage: cloudinary init: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, object, _ string, data []byte) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  publicID(object),
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("storage: cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("storage: cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, object string) error {
	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID(object)})
	if err != nil {
		return fmt.Errorf("storage: cloudinary destroy: %w", err)
	}
	if resp.Result == "not found" {
		return ErrObjectNotFound
	}
	return nil
}

// publicID drops the extension; Cloudinary derives the format itself.
func publicID(object string) string {
	object = strings.TrimPrefix(strings.TrimSpace(object), "/")
	if i := strings.LastIndex(object, "."); i > strings.LastIndex(object, "/") {
		object = object[:i]
	}
	return object
}
