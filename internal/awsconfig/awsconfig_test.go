package awsconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStaticCredentials(t *testing.T) {
	cfg, err := Load(context.Background(), Settings{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestLoadRegionFromEnvironment(t *testing.T) {
	t.Setenv("AWS_REGION", "ap-southeast-2")

	cfg, err := Load(context.Background(), Settings{})
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
}

func TestLoadUsesProvidedHTTPClient(t *testing.T) {
	httpClient, transport := NewHTTPClient()
	require.NotNil(t, transport)
	assert.Same(t, transport, httpClient.Transport)

	cfg, err := Load(context.Background(), Settings{
		Region:     "us-east-1",
		HTTPClient: httpClient,
	})
	require.NoError(t, err)
	assert.Same(t, httpClient, cfg.HTTPClient)
}
