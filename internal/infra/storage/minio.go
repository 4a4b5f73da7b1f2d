package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

const pdfContentType = "application/pdf"

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and creates the bucket when it is missing.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// ObjectKey places a report under its hazard. The random suffix keeps
// regenerated reports for the same audit from overwriting each other.
func ObjectKey(id audit.ID, hazard audit.Hazard) string {
	h := strings.ToLower(string(hazard))
	if h == "" {
		h = "unknown"
	}
	return path.Join("reports", h, fmt.Sprintf("%d-%s.pdf", id, uuid.NewString()))
}

// Archive uploads a rendered report under ObjectKey and returns its object URL.
func (s *Store) Archive(ctx context.Context, id audit.ID, hazard audit.Hazard, pdf []byte) (string, error) {
	key := ObjectKey(id, hazard)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(pdf), int64(len(pdf)), minio.PutObjectOptions{
		ContentType: pdfContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	// public URL; private buckets need a presigned URL instead
	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucketName, key)
	return url, nil
}
