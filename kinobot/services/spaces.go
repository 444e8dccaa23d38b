package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	kconfig "github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/google/uuid"
)

type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// SpacesService archives payment receipts in an S3 compatible bucket.
type SpacesService struct {
	client      objectStore
	presigner   *s3.PresignClient
	httpClient  *http.Client
	bucket      string
	ReceiptRoot string
}

func NewSpacesService(key, secret, region, bucket, endpoint, receiptRoot string) (*SpacesService, error) {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", region)
	}
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &SpacesService{
		client:      client,
		presigner:   s3.NewPresignClient(client),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		bucket:      bucket,
		ReceiptRoot: strings.Trim(receiptRoot, "/"),
	}, nil
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) receiptKey(accountID, filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" && contentType != "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return path.Join(s.ReceiptRoot, accountID, uuid.NewString()+ext)
}

// ArchiveReceipt copies the receipt at r.URL into the bucket and returns the object key.
func (s *SpacesService) ArchiveReceipt(ctx context.Context, accountID string, r Receipt) (string, error) {
	if r.URL == "" {
		return "", errors.New("receipt has no download url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build receipt request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download receipt: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download receipt: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, kconfig.MaxReceiptSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read receipt: %w", err)
	}
	if len(body) > kconfig.MaxReceiptSize {
		return "", fmt.Errorf("receipt exceeds %d bytes", kconfig.MaxReceiptSize)
	}

	contentType := r.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	key := s.receiptKey(accountID, r.Filename, contentType)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"account-id": accountID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	slog.Info("Receipt archived",
		slog.String("type", "sys"),
		slog.String("account_id", accountID),
		slog.String("key", key),
		slog.Int("bytes", len(body)))
	return key, nil
}

// DeleteReceipt removes an archived receipt that no claim refers to.
func (s *SpacesService) DeleteReceipt(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

// PresignReceipt returns a temporary download link for an archived receipt.
func (s *SpacesService) PresignReceipt(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.presigner == nil {
		return "", errors.New("presigning is not configured")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign receipt: %w", err)
	}
	return req.URL, nil
}
