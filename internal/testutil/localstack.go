// Package testutil starts a LocalStack container for integration tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/markberger/awswrappers/internal/s3_client"
	"github.com/markberger/awswrappers/internal/sqs_client"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Region and static credentials accepted by LocalStack.
const (
	Region    = "us-east-1"
	AccessKey = "test"
	SecretKey = "test"

	image = "localstack/localstack:3.8"
)

var edgePort = nat.Port("4566/tcp")

// LocalStack is a running LocalStack container with S3 and SQS enabled.
type LocalStack struct {
	container *localstack.LocalStackContainer
	endpoint  string
}

// StartLocalStack starts the container. Integration suites call it from
// SetupSuite and skip when it fails, which usually means Docker is missing.
func StartLocalStack(ctx context.Context) (*LocalStack, error) {
	container, err := localstack.Run(ctx, image,
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3,sqs"}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort(edgePort).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start localstack container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, edgePort)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &LocalStack{
		container: container,
		endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}, nil
}

// SetupLocalStack starts a container for t, skipping under -short or when the
// container cannot be started.
func SetupLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ls, err := StartLocalStack(context.Background())
	if err != nil {
		t.Skipf("localstack unavailable: %v", err)
	}
	return ls
}

// Endpoint is the container's edge URL.
func (l *LocalStack) Endpoint() string {
	return l.endpoint
}

// S3Config points an S3 client at the container with path-style addressing.
func (l *LocalStack) S3Config() s3_client.S3ClientConfig {
	return s3_client.S3ClientConfig{
		Endpoint:        l.endpoint,
		Region:          Region,
		AccessKeyID:     AccessKey,
		SecretAccessKey: SecretKey,
		UsePathStyle:    true,
		StorageClass:    "STANDARD",
	}
}

// SQSConfig points an SQS client at the container.
func (l *LocalStack) SQSConfig() sqs_client.SQSClientConfig {
	return sqs_client.SQSClientConfig{
		Endpoint:        l.endpoint,
		Region:          Region,
		AccessKeyID:     AccessKey,
		SecretAccessKey: SecretKey,
	}
}

// SetEnv points the AWSW_* variables at the container for the duration of t.
func (l *LocalStack) SetEnv(t *testing.T) {
	t.Helper()

	t.Setenv("AWSW_S3_ENDPOINT", l.endpoint)
	t.Setenv("AWSW_S3_REGION", Region)
	t.Setenv("AWSW_S3_ACCESS_KEY", AccessKey)
	t.Setenv("AWSW_S3_SECRET_KEY", SecretKey)
	t.Setenv("AWSW_S3_PATH_STYLE", "true")
	t.Setenv("AWSW_SQS_ENDPOINT", l.endpoint)
	t.Setenv("AWSW_SQS_REGION", Region)
	t.Setenv("AWSW_SQS_ACCESS_KEY", AccessKey)
	t.Setenv("AWSW_SQS_SECRET_KEY", SecretKey)
}

// CreateBucket creates a uniquely named bucket and returns its name.
func (l *LocalStack) CreateBucket(ctx context.Context) (string, error) {
	client, err := s3_client.CreateRawS3Client(ctx, l.S3Config())
	if err != nil {
		return "", err
	}

	name := UniqueName("bucket")
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		return "", fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return name, nil
}

// CreateQueue creates a uniquely named queue and returns its URL.
func (l *LocalStack) CreateQueue(ctx context.Context, prefix string) (string, error) {
	client, err := sqs_client.CreateRawSQSClient(ctx, l.SQSConfig())
	if err != nil {
		return "", err
	}

	name := UniqueName(prefix)
	out, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to create queue %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// Terminate stops and removes the container.
func (l *LocalStack) Terminate(ctx context.Context) error {
	if l.container == nil {
		return nil
	}
	if err := l.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}

// UniqueName returns prefix followed by a short random suffix, lower case so
// it is a valid bucket name.
func UniqueName(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%s", prefix, suffix)
}
