// Package queue is a small facade over a single SQS queue.
//
// Send, Receive and Delete map one-to-one onto the SDK calls. Receive long
// polls for WaitTimeSeconds and never asks for more than MaxMessages.
// Failures are *wraperr.Error values of kind wraperr.ErrQueueOperation.
package queue

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/markberger/awswrappers/internal/config"
	"github.com/markberger/awswrappers/internal/sqs_client"
	"github.com/markberger/awswrappers/metrics"
	"github.com/markberger/awswrappers/wraperr"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxMessages is the largest batch SQS returns from one receive.
	MaxMessages = 10

	// WaitTimeSeconds is the long-poll duration used by Receive.
	WaitTimeSeconds = 20

	service = "sqs"
)

// ClampBatchSize limits n to [1, MaxMessages].
func ClampBatchSize(n int) int32 {
	switch {
	case n < 1:
		return 1
	case n > MaxMessages:
		return MaxMessages
	default:
		return int32(n)
	}
}

// Queue is implemented by Client.
type Queue interface {
	Send(ctx context.Context, body string) (SendResult, error)
	Receive(ctx context.Context, maxMessages int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) (DeleteResult, error)
	URL() string
	Close() error
}

var _ Queue = (*Client)(nil)

// Client sends to and receives from one queue URL.
type Client struct {
	mu  sync.RWMutex
	api API
	url string
}

// New returns a Client for queueURL.
func New(ctx context.Context, queueURL *url.URL, opts ...Option) (*Client, error) {
	if queueURL == nil || strings.TrimSpace(queueURL.String()) == "" {
		return nil, wraperr.Validation("new queue client", "queue url cannot be empty")
	}

	o := buildOptions(opts)
	if o.api == nil {
		api, err := apiFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		o.api = api
	}

	return &Client{api: o.api, url: queueURL.String()}, nil
}

func apiFromEnv(ctx context.Context) (*sqs_client.RealSQSClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		return nil, err
	}
	metrics.EnsureInit(ctx, cfg.Metrics)

	api, err := sqs_client.CreateSQSClient(ctx, cfg.SQS)
	if err != nil {
		return nil, fmt.Errorf("failed to create sqs client: %w", err)
	}
	return api, nil
}

// ResolveQueueURL returns the URL of the first queue whose name starts with
// namePrefix, or nil when none does. An empty prefix matches every queue. A
// client built here is released before returning.
func ResolveQueueURL(ctx context.Context, namePrefix string, opts ...Option) (_ *url.URL, err error) {
	const op = "resolve queue url"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "resolve", start, err) }()

	o := buildOptions(opts)
	api := o.api
	if api == nil {
		owned, err := apiFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		defer owned.Close()
		api = owned
	}

	input := &sqs.ListQueuesInput{}
	if namePrefix != "" {
		input.QueueNamePrefix = aws.String(namePrefix)
	}
	out, err := api.ListQueues(ctx, input)
	if err != nil {
		return nil, wraperr.QueueOperation(op, namePrefix, err)
	}
	if len(out.QueueUrls) == 0 {
		log.WithField("prefix", namePrefix).Debug("No queue matches prefix")
		return nil, nil
	}

	u, err := url.Parse(out.QueueUrls[0])
	if err != nil {
		return nil, wraperr.QueueOperation(op, namePrefix, err)
	}
	return u, nil
}

// URL returns the queue URL the client was built with.
func (c *Client) URL() string {
	return c.url
}

// Close releases the underlying SQS client. Later calls return
// wraperr.ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		return nil
	}
	api := c.api
	c.api = nil

	log.WithField("queue", c.url).Debug("Closing queue client")
	if closer, ok := api.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) session(op string) (API, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.api == nil {
		return nil, wraperr.Closed(op, c.url)
	}
	return c.api, nil
}

// Send enqueues body.
func (c *Client) Send(ctx context.Context, body string) (res SendResult, err error) {
	const op = "send message"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "send", start, err) }()

	api, err := c.session(op)
	if err != nil {
		return SendResult{}, err
	}

	out, err := api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.url),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return SendResult{}, wraperr.QueueOperation(op, c.url, err)
	}
	metrics.AddMessages(ctx, "sent", 1)

	res = SendResult{
		MessageID:      aws.ToString(out.MessageId),
		MD5OfBody:      aws.ToString(out.MD5OfMessageBody),
		SequenceNumber: aws.ToString(out.SequenceNumber),
	}
	log.WithFields(log.Fields{
		"queue":      c.url,
		"message_id": res.MessageID,
	}).Debug("Sent message")
	return res, nil
}

// Receive long polls for up to maxMessages messages. maxMessages is clamped
// with ClampBatchSize. An empty, non-nil slice means nothing arrived.
func (c *Client) Receive(ctx context.Context, maxMessages int) (msgs []Message, err error) {
	const op = "receive messages"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "receive", start, err) }()

	api, err := c.session(op)
	if err != nil {
		return nil, err
	}

	out, err := api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(c.url),
		MaxNumberOfMessages:         ClampBatchSize(maxMessages),
		WaitTimeSeconds:             WaitTimeSeconds,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll},
	})
	if err != nil {
		return nil, wraperr.QueueOperation(op, c.url, err)
	}

	msgs = make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, messageFromSDK(m))
	}
	metrics.AddMessages(ctx, "received", len(msgs))

	log.WithFields(log.Fields{
		"queue": c.url,
		"count": len(msgs),
	}).Debug("Received messages")
	return msgs, nil
}

// Delete removes the message identified by receiptHandle. A blank handle is
// rejected with wraperr.ErrValidation without calling SQS; an expired or
// unknown handle comes back as the wrapped SDK error.
func (c *Client) Delete(ctx context.Context, receiptHandle string) (res DeleteResult, err error) {
	const op = "delete message"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "delete", start, err) }()

	if strings.TrimSpace(receiptHandle) == "" {
		return DeleteResult{}, wraperr.Validation(op, "receipt handle cannot be empty")
	}

	api, err := c.session(op)
	if err != nil {
		return DeleteResult{}, err
	}

	out, err := api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return DeleteResult{}, wraperr.QueueOperation(op, c.url, err)
	}

	res.RequestID, _ = awsmiddleware.GetRequestIDMetadata(out.ResultMetadata)
	return res, nil
}
