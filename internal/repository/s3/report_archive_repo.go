package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/banking/muling-detector/internal/config"
)

// ReportArchiveRepository stores a full analysis-run JSON export in
// S3, keyed chronologically for later retrieval.
type ReportArchiveRepository struct {
	client *s3.Client
	bucket string
}

// NewReportArchiveRepository creates a new S3 report archive repository.
func NewReportArchiveRepository(ctx context.Context, cfg appconfig.S3Config) (*ReportArchiveRepository, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // required for MinIO
	})

	return &ReportArchiveRepository{
		client: client,
		bucket: cfg.ReportsBucket,
	}, nil
}

// StoreReport uploads a run's exported JSON report, keyed by date and
// run id so archives are listable chronologically.
func (r *ReportArchiveRepository) StoreReport(ctx context.Context, runID string, reportData []byte) error {
	now := time.Now().UTC()
	key := fmt.Sprintf("%d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), runID)

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(reportData),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to s3: %w", err)
	}
	return nil
}
