package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// StorageConfig points at an S3-compatible bucket.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base for returned links. Defaults to
	// https://<bucket>.s3.<region>.amazonaws.com.
	PublicURL string
}

// Storage uploads listing images.
type Storage struct {
	client    s3iface.S3API
	bucket    string
	publicURL string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is not configured")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return newStorage(s3.New(sess), cfg), nil
}

func newStorage(client s3iface.S3API, cfg StorageConfig) *Storage {
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &Storage{client: client, bucket: cfg.Bucket, publicURL: public}
}

// Upload stores file under folder with a random name that keeps the original
// extension, and returns its public URL.
func (s *Storage) Upload(ctx context.Context, file []byte, fileName, folder, contentType string) (string, error) {
	if len(file) == 0 {
		return "", errors.New("storage: empty file")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(fileName)))

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file),
		ContentLength: aws.Int64(int64(len(file))),
		ContentType:   aws.String(contentType),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload file to S3: %w", err)
	}

	return s.publicURL + "/" + key, nil
}
