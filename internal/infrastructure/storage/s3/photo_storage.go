package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dreschagin/photo-gallery/internal/application/port"
	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
)

const (
	opList    = "s3.list_objects"
	opPresign = "s3.presign_get_object"
	opPing    = "s3.head_bucket"

	defaultPageSize = 1000
)

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// PageSize is MaxKeys per ListObjectsV2 call (1..1000).
	PageSize int
	// MaxAttempts overrides the SDK retryer; 0 keeps the SDK default.
	MaxAttempts int
}

// PhotoStorage lists and signs objects of a single bucket.
type PhotoStorage struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	pageSize int32
}

var _ port.PhotoStorage = (*PhotoStorage)(nil)

func NewPhotoStorage(ctx context.Context, cfg Config) (*PhotoStorage, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}

	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	// Without static keys the default chain is used (the Lambda execution role).
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.MaxAttempts > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxAttempts))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return &PhotoStorage{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
		pageSize: int32(cfg.PageSize),
	}, nil
}

// ListObjects walks every page under query.Prefix in listing order.
// Keys that are empty or end with "/" (folder markers) are skipped.
func (s *PhotoStorage) ListObjects(ctx context.Context, query port.ListObjectsQuery) ([]port.PhotoObject, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if query.Prefix != "" {
		input.Prefix = aws.String(query.Prefix)
	}

	objects := make([]port.PhotoObject, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError(opList, err)
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if strings.TrimSpace(key) == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, port.PhotoObject{
				Key:          key,
				Size:         aws.ToInt64(object.Size),
				LastModified: aws.ToTime(object.LastModified).UTC(),
			})
		}

		if query.MaxObjects > 0 && len(objects) > query.MaxObjects {
			return nil, apperror.New(apperror.KindLimitExceeded, opList,
				fmt.Sprintf("photo listing exceeds the configured limit of %d objects", query.MaxObjects))
		}
	}

	return objects, nil
}

// PresignGetObject signs a GET for key valid for ttl. No network call is made.
func (s *PhotoStorage) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", apperror.New(apperror.KindInvalid, opPresign, "object key is required")
	}
	if ttl <= 0 {
		return "", apperror.New(apperror.KindInvalid, opPresign, "url expiry must be positive")
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", classifyError(opPresign, err)
	}

	return request.URL, nil
}

// Ping checks that the bucket exists and is reachable with the current credentials.
func (s *PhotoStorage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return classifyError(opPing, err)
}

func (s *PhotoStorage) Bucket() string {
	return s.bucket
}
