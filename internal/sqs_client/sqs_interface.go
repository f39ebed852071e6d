package sqs_client

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSClient interface abstracts SQS operations for testing
type SQSClient interface {
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// RealSQSClient wraps the actual AWS SQS client
type RealSQSClient struct {
	client    *sqs.Client
	transport *http.Transport
}

func (r *RealSQSClient) ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error) {
	return r.client.ListQueues(ctx, params, optFns...)
}

func (r *RealSQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return r.client.SendMessage(ctx, params, optFns...)
}

func (r *RealSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return r.client.ReceiveMessage(ctx, params, optFns...)
}

func (r *RealSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return r.client.DeleteMessage(ctx, params, optFns...)
}

// Close drops the idle connections pooled by the client's transport. A client
// built without its own transport has nothing to release.
func (r *RealSQSClient) Close() error {
	if r.transport != nil {
		r.transport.CloseIdleConnections()
	}
	return nil
}

// NewRealSQSClient wraps client. transport is the one client sends requests
// through and may be nil.
func NewRealSQSClient(client *sqs.Client, transport *http.Transport) *RealSQSClient {
	return &RealSQSClient{client: client, transport: transport}
}
