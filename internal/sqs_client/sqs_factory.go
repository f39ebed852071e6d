package sqs_client

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/markberger/awswrappers/internal/awsconfig"
)

// SQSClientConfig holds configuration for SQS client creation
type SQSClientConfig struct {
	Endpoint        string `env:"AWSW_SQS_ENDPOINT"`
	Region          string `env:"AWSW_SQS_REGION"`
	AccessKeyID     string `env:"AWSW_SQS_ACCESS_KEY"`
	SecretAccessKey string `env:"AWSW_SQS_SECRET_KEY"`
}

// newSQSClient builds an *sqs.Client on a transport owned by the caller.
func newSQSClient(ctx context.Context, cfg SQSClientConfig) (*sqs.Client, *http.Transport, error) {
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

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return client, transport, nil
}

// CreateRawSQSClient creates a raw *sqs.Client from the given configuration
func CreateRawSQSClient(ctx context.Context, cfg SQSClientConfig) (*sqs.Client, error) {
	client, _, err := newSQSClient(ctx, cfg)
	return client, err
}

// CreateSQSClient creates an SQS client with the given configuration. Close on
// the result releases its pooled connections.
func CreateSQSClient(ctx context.Context, cfg SQSClientConfig) (*RealSQSClient, error) {
	client, transport, err := newSQSClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRealSQSClient(client, transport), nil
}
