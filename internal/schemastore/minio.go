package schemastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const catalogKey = "catalog/overview.json"

// MinioConfig configures the object-store backed implementation.
type MinioConfig struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// Minio stores the catalog and detailed schemas as JSON/text objects in one
// bucket. Detailed schemas live under schemas/<schema_id>.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio dials the endpoint and ensures the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("schemastore: endpoint is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("schemastore: credentials are required")
	}
	endpoint := cfg.EndpointURL
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.EndpointURL); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("schemastore: create client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("schemastore: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("schemastore: create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func (s *Minio) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("schemastore: put %s: %w", key, err)
	}
	return nil
}

func (s *Minio) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("schemastore: get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schemastore: read %s: %w", key, err)
	}
	return data, nil
}

func (s *Minio) PutCatalog(ctx context.Context, c Catalog) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("schemastore: marshal catalog: %w", err)
	}
	return s.put(ctx, catalogKey, data, "application/json")
}

func (s *Minio) GetCatalog(ctx context.Context) (Catalog, error) {
	data, err := s.get(ctx, catalogKey)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("schemastore: unmarshal catalog: %w", err)
	}
	return c, nil
}

func (s *Minio) PutDetailedSchema(ctx context.Context, schemaID string, schema string) error {
	key := path.Join("schemas", schemaID)
	// Write-once: an existing object wins.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return nil
	}
	return s.put(ctx, key, []byte(schema), "text/plain")
}

func (s *Minio) GetDetailedSchema(ctx context.Context, schemaID string) (string, error) {
	data, err := s.get(ctx, path.Join("schemas", schemaID))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var _ Store = (*Minio)(nil)
var _ Store = (*Memory)(nil)
