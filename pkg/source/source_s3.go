package source

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// S3Source pulls a CSV object from a bucket. Partner operators drop their
// booking exports into S3; each run fetches the current object in full and
// lets the incremental wrapper keep reprocessing cheap.
//
// Credentials come from the default AWS chain: environment variables,
// ~/.aws/credentials, or an IAM role.
type S3Source struct {
	name          string
	client        *s3.Client
	bucket        string
	key           string
	numericFields map[string]bool
}

func NewS3Source(config map[string]interface{}) (*S3Source, error) {
	name, ok := types.GetString(config, "name")
	if !ok {
		return nil, errors.New("name must be specified")
	}

	bucket, ok := types.GetString(config, "bucket")
	if !ok {
		return nil, errors.New("bucket must be specified")
	}

	key, ok := types.GetString(config, "key")
	if !ok {
		return nil, errors.New("key must be specified")
	}

	region, ok := types.GetString(config, "region")
	if !ok {
		return nil, errors.New("region must be specified")
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucket, err)
	}

	log.Printf("[INFO] S3 source %s reading s3://%s/%s", name, bucket, key)

	return &S3Source{
		name:          name,
		client:        client,
		bucket:        bucket,
		key:           key,
		numericFields: numericFieldSet(config),
	}, nil
}

func (s *S3Source) Name() string {
	return s.name
}

func (s *S3Source) Extract(ctx context.Context) ([]types.Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	records, err := readCSV(ctx, out.Body, s.numericFields)
	if err != nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, out.Body)
		return nil, fmt.Errorf("failed to parse s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return records, nil
}

func (s *S3Source) Close() error {
	return nil
}
