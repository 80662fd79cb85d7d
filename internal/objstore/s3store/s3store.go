// Package s3store implements objstore.Store against any S3-compatible
// service (AWS S3, MinIO, GCS interop endpoint).
//
// The client is built once from environment-driven configuration and passed
// into the pipeline, never constructed implicitly at call time.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore"
)

// Config configures the S3 client.
//
// Supported env fallbacks (local-friendly):
//   - AWS_REGION (default: us-east-1)
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY (default: local)
//   - S3_ENDPOINT (optional; e.g. http://minio:9000)
type Config struct {
	// Region is the AWS region; falls back to AWS_REGION, then us-east-1.
	Region string

	// Endpoint overrides the service endpoint (MinIO, localstack). When set,
	// path-style addressing is forced since virtual-host style rarely works
	// against local endpoints.
	Endpoint string
}

// Store is an S3-backed objstore.Store. Containers map to buckets.
type Store struct {
	client *s3.Client
}

// New constructs a Store from cfg, applying env fallbacks for anything unset.
func New(ctx context.Context, cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = getenvDefault("AWS_REGION", "us-east-1")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("S3_ENDPOINT")
	}

	// Local S3 stand-ins do not validate credentials, but the SDK requires them.
	creds := credentials.NewStaticCredentialsProvider(
		getenvDefault("AWS_ACCESS_KEY_ID", "local"),
		getenvDefault("AWS_SECRET_ACCESS_KEY", "local"),
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, container, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, fmt.Errorf("%s/%s: %w", container, key, objstore.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", container, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", container, key, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, container, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", container, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
