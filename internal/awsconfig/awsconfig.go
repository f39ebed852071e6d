package awsconfig

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Settings selects the region, credentials and HTTP client used to build an
// aws.Config. Empty fields fall back to the SDK defaults (environment, shared
// config, instance role, default HTTP client).
type Settings struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	HTTPClient      aws.HTTPClient
}

// NewHTTPClient returns an HTTP client together with its transport. The
// transport starts from the SDK's default settings and belongs to the caller,
// which closes its idle connections when the service client is released.
// Redirects are returned rather than followed, as the SDK's own client does.
func NewHTTPClient() (*http.Client, *http.Transport) {
	transport := awshttp.NewBuildableClient().GetTransport()
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client, transport
}

// Load resolves an aws.Config for the given settings.
func Load(ctx context.Context, settings Settings) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if settings.Region != "" {
		opts = append(opts, config.WithRegion(settings.Region))
	}

	if settings.AccessKeyID != "" {
		staticCredentialsProvider := credentials.NewStaticCredentialsProvider(
			settings.AccessKeyID,
			settings.SecretAccessKey,
			"",
		)
		opts = append(opts, config.WithCredentialsProvider(staticCredentialsProvider))
	}

	if settings.HTTPClient != nil {
		opts = append(opts, config.WithHTTPClient(settings.HTTPClient))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}
