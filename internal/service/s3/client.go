package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vaultdrive/internal/domain"
)

const (
	defaultTimeout  = 30 * time.Second
	uploadTimeout   = 10 * time.Minute
	downloadTimeout = 10 * time.Minute
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client *s3.Client
	bucket string
}

// NewClient создает новый экземпляр клиента S3
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client: client,
		bucket: conf.Bucket,
	}

	// Проверяем подключение к бакету
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

// objectKey собирает ключ хранения содержимого версии.
// Версии неизменяемы, поэтому ключ включает идентификатор версии.
func objectKey(bucketID int64, itemKey string, versionID string) string {
	return fmt.Sprintf("%d/%s/%s", bucketID, itemKey, versionID)
}

// WriteContent загружает содержимое версии в S3
func (h *Client) WriteContent(ctx context.Context, bucketID int64, itemKey string, versionID string, data []byte) error {
	if itemKey == "" || versionID == "" {
		return fmt.Errorf("itemKey and versionID are required")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(objectKey(bucketID, itemKey, versionID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload content to S3: %w", err)
	}

	return nil
}

// ReadContent получает содержимое версии из S3
func (h *Client) ReadContent(ctx context.Context, bucketID int64, itemKey string, versionID string) (S3Object, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	result, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(objectKey(bucketID, itemKey, versionID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: version content %s", domain.ErrNotFound, versionID)
		}
		return nil, fmt.Errorf("failed to get content from S3: %w", err)
	}

	obj := &s3Object{ReadCloser: result.Body}
	if result.ContentLength != nil {
		obj.contentLength = *result.ContentLength
	}
	if result.ContentType != nil {
		obj.contentType = *result.ContentType
	}

	return obj, nil
}

// DeleteContent удаляет содержимое версии из S3
func (h *Client) DeleteContent(ctx context.Context, bucketID int64, itemKey string, versionID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	key := objectKey(bucketID, itemKey, versionID)

	// Если объекта уже нет, считаем операцию успешной.
	// HeadObject сообщает об отсутствии ключа через NotFound, не NoSuchKey.
	_, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	var notFound *types.NotFound
	if err != nil && errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check content existence: %w", err)
	}

	_, err = h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete content from S3: %w", err)
	}

	return nil
}
