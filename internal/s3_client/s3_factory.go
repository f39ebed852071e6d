package s3_client

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/markberger/awswrappers/internal/awsconfig"
)

// S3ClientConfig holds configuration for S3 client creation. Empty credentials
// and region defer to the SDK default chain; an empty endpoint targets AWS.
type S3ClientConfig struct {
	Endpoint        string `env:"AWSW_S3_ENDPOINT"`
	Region          string `env:"AWSW_S3_REGION"`
	AccessKeyID     string `env:"AWSW_S3_ACCESS_KEY"`
	SecretAccessKey string `env:"AWSW_S3_SECRET_KEY"`
	UsePathStyle    bool   `env:"AWSW_S3_PATH_STYLE"    envDefault:"false"`
	StorageClass    string `env:"AWSW_S3_STORAGE_CLASS" envDefault:"REDUCED_REDUNDANCY"`
}

// newS3Client builds an *s3.Client on a transport owned by the caller.
func newS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, *http.Transport, error) {
	httpClient, transport := awsconfig.NewHTTPClient()
	awsCfg, err := awsconfig.Load(ctx, awsconfig.Settings{
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		HTTPClient:      httpClient,
	})
	if err != nil {
		return nil, nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return client, transport, nil
}

// CreateRawS3Client creates a raw *s3.Client from the given configuration
func CreateRawS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	client, _, err := newS3Client(ctx, cfg)
	return client, err
}

// CreateS3Client creates an S3 client with the given configuration. Close on
// the result releases its pooled connections.
func CreateS3Client(ctx context.Context, cfg S3ClientConfig) (*RealS3Client, error) {
	client, transport, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRealS3Client(client, transport), nil
}
