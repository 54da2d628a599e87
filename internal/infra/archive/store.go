// Package archive keeps raw payment webhook payloads in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	bucket   string
	s3Client S3API
	clock    clock.Clock
	logger   *logging.Logger
}

// NewStore creates a Store. With an empty bucket every call is a no-op.
func NewStore(s3Client S3API, bucket string, clk clock.Clock, logger *logging.Logger) *Store {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, clock: clk, logger: logger}
}

func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Archive writes payload under webhooks/<provider>/YYYY/MM/DD/.
func (s *Store) Archive(ctx context.Context, provider string, payload []byte) error {
	if !s.Enabled() {
		return nil
	}

	now := s.clock.Now().UTC()
	key := fmt.Sprintf("webhooks/%s/%d/%02d/%02d/%s-%s.json",
		provider, now.Year(), now.Month(), now.Day(),
		now.Format("150405"), uuid.NewString())

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"provider":    provider,
			"received-at": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Debug("archived webhook payload", "provider", provider, "s3_key", key, "bytes", len(payload))
	return nil
}
