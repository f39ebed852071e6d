package queue

import "github.com/markberger/awswrappers/internal/sqs_client"

// API is the subset of the SQS SDK client used by Client. *sqs.Client
// satisfies it.
type API = sqs_client.SQSClient

type options struct {
	api API
}

// Option configures a Client or ResolveQueueURL.
type Option func(*options)

// WithAPI injects the SQS client. Without it one is built from the
// environment.
func WithAPI(api API) Option {
	return func(o *options) { o.api = api }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
