package queue

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go/middleware"
	"github.com/markberger/awswrappers/internal/sqs_client"
	"github.com/markberger/awswrappers/wraperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/000000000000/orders"

func newTestClient(t *testing.T) (*Client, *sqs_client.MockSQSClient) {
	t.Helper()
	api := &sqs_client.MockSQSClient{}
	u, err := url.Parse(testQueueURL)
	require.NoError(t, err)

	client, err := New(context.Background(), u, WithAPI(api))
	require.NoError(t, err)
	return client, api
}

func TestClampBatchSize(t *testing.T) {
	cases := map[int]int32{
		-3: 1,
		0:  1,
		1:  1,
		5:  5,
		10: 10,
		11: 10,
		50: 10,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClampBatchSize(in), "input %d", in)
	}
}

func TestNew_Validation(t *testing.T) {
	api := &sqs_client.MockSQSClient{}

	_, err := New(context.Background(), nil, WithAPI(api))
	assert.True(t, wraperr.IsValidation(err))

	_, err = New(context.Background(), &url.URL{}, WithAPI(api))
	assert.True(t, wraperr.IsValidation(err))
}

func TestClient_URL(t *testing.T) {
	client, _ := newTestClient(t)
	assert.Equal(t, testQueueURL, client.URL())
}

func TestSend(t *testing.T) {
	client, api := newTestClient(t)

	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
		return aws.ToString(in.QueueUrl) == testQueueURL && aws.ToString(in.MessageBody) == "hello"
	})).Return(&sqs.SendMessageOutput{
		MessageId:        aws.String("msg-1"),
		MD5OfMessageBody: aws.String("5d41402abc4b2a76b9719d911017c592"),
	}, nil).Once()

	res, err := client.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", res.MD5OfBody)
	assert.Empty(t, res.SequenceNumber)
	api.AssertExpectations(t)
}

func TestSend_Failure(t *testing.T) {
	client, api := newTestClient(t)
	sdkErr := &types.QueueDoesNotExist{Message: aws.String("gone")}

	api.On("SendMessage", mock.Anything, mock.Anything).
		Return((*sqs.SendMessageOutput)(nil), sdkErr).Once()

	_, err := client.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, wraperr.IsQueueOperation(err))

	var missing *types.QueueDoesNotExist
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "gone", aws.ToString(missing.Message))
}

func TestReceive_ClampsAndLongPolls(t *testing.T) {
	for requested, expected := range map[int]int32{0: 1, 50: 10, 5: 5} {
		client, api := newTestClient(t)

		api.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(in *sqs.ReceiveMessageInput) bool {
			return aws.ToString(in.QueueUrl) == testQueueURL &&
				in.MaxNumberOfMessages == expected &&
				in.WaitTimeSeconds == WaitTimeSeconds
		})).Return(&sqs.ReceiveMessageOutput{}, nil).Once()

		_, err := client.Receive(context.Background(), requested)
		require.NoError(t, err)
		api.AssertExpectations(t)
	}
}

func TestReceive_Messages(t *testing.T) {
	client, api := newTestClient(t)

	api.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{
				MessageId:     aws.String("m1"),
				Body:          aws.String("first"),
				ReceiptHandle: aws.String("rh1"),
				MD5OfBody:     aws.String("md5-1"),
				Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
			},
			{MessageId: aws.String("m2"), Body: aws.String("second"), ReceiptHandle: aws.String("rh2")},
		},
	}, nil).Once()

	msgs, err := client.Receive(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{
		ID:            "m1",
		Body:          "first",
		ReceiptHandle: "rh1",
		MD5OfBody:     "md5-1",
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}, msgs[0])
	assert.Equal(t, "rh2", msgs[1].ReceiptHandle)
}

func TestReceive_EmptyIsNonNil(t *testing.T) {
	client, api := newTestClient(t)

	api.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{}, nil).Once()

	msgs, err := client.Receive(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestReceive_Failure(t *testing.T) {
	client, api := newTestClient(t)

	api.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return((*sqs.ReceiveMessageOutput)(nil), errors.New("throttled")).Once()

	msgs, err := client.Receive(context.Background(), 1)
	assert.Nil(t, msgs)
	assert.True(t, wraperr.IsQueueOperation(err))
	assert.Contains(t, err.Error(), testQueueURL)
}

func TestDelete(t *testing.T) {
	client, api := newTestClient(t)

	var md middleware.Metadata
	awsmiddleware.SetRequestIDMetadata(&md, "req-123")

	api.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(in *sqs.DeleteMessageInput) bool {
		return aws.ToString(in.QueueUrl) == testQueueURL && aws.ToString(in.ReceiptHandle) == "rh1"
	})).Return(&sqs.DeleteMessageOutput{ResultMetadata: md}, nil).Once()

	res, err := client.Delete(context.Background(), "rh1")
	require.NoError(t, err)
	assert.Equal(t, "req-123", res.RequestID)
}

func TestDelete_Failures(t *testing.T) {
	client, api := newTestClient(t)

	_, err := client.Delete(context.Background(), " ")
	assert.True(t, wraperr.IsValidation(err))

	api.On("DeleteMessage", mock.Anything, mock.Anything).
		Return((*sqs.DeleteMessageOutput)(nil), &types.ReceiptHandleIsInvalid{}).Once()

	_, err = client.Delete(context.Background(), "expired")
	assert.True(t, wraperr.IsQueueOperation(err))

	var invalid *types.ReceiptHandleIsInvalid
	assert.True(t, errors.As(err, &invalid))
}

func TestResolveQueueURL(t *testing.T) {
	api := &sqs_client.MockSQSClient{}

	api.On("ListQueues", mock.Anything, mock.MatchedBy(func(in *sqs.ListQueuesInput) bool {
		return aws.ToString(in.QueueNamePrefix) == "orders"
	})).Return(&sqs.ListQueuesOutput{
		QueueUrls: []string{testQueueURL, testQueueURL + "-dlq"},
	}, nil).Once()
	api.On("ListQueues", mock.Anything, mock.MatchedBy(func(in *sqs.ListQueuesInput) bool {
		return aws.ToString(in.QueueNamePrefix) == "nothing"
	})).Return(&sqs.ListQueuesOutput{}, nil).Once()
	api.On("ListQueues", mock.Anything, mock.MatchedBy(func(in *sqs.ListQueuesInput) bool {
		return aws.ToString(in.QueueNamePrefix) == "broken"
	})).Return((*sqs.ListQueuesOutput)(nil), errors.New("denied")).Once()

	ctx := context.Background()

	u, err := ResolveQueueURL(ctx, "orders", WithAPI(api))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, testQueueURL, u.String())

	u, err = ResolveQueueURL(ctx, "nothing", WithAPI(api))
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = ResolveQueueURL(ctx, "broken", WithAPI(api))
	assert.Nil(t, u)
	assert.True(t, wraperr.IsQueueOperation(err))

	api.AssertExpectations(t)
}

func TestResolveQueueURL_EmptyPrefixListsAll(t *testing.T) {
	api := &sqs_client.MockSQSClient{}

	api.On("ListQueues", mock.Anything, mock.MatchedBy(func(in *sqs.ListQueuesInput) bool {
		return in.QueueNamePrefix == nil
	})).Return(&sqs.ListQueuesOutput{
		QueueUrls: []string{"http://localhost:4566/000000000000/first", "http://localhost:4566/000000000000/second"},
	}, nil).Once()

	u, err := ResolveQueueURL(context.Background(), "", WithAPI(api))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "http://localhost:4566/000000000000/first", u.String())
	api.AssertExpectations(t)
}

func TestClose(t *testing.T) {
	client, api := newTestClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	ctx := context.Background()
	_, err := client.Send(ctx, "x")
	assert.True(t, wraperr.IsClosed(err))
	_, err = client.Receive(ctx, 1)
	assert.True(t, wraperr.IsClosed(err))
	_, err = client.Delete(ctx, "rh")
	assert.True(t, wraperr.IsClosed(err))

	api.AssertExpectations(t)
}

type closingSQSClient struct {
	*sqs_client.MockSQSClient
	closes int
}

func (c *closingSQSClient) Close() error {
	c.closes++
	return nil
}

func TestClose_ReleasesAPIOnce(t *testing.T) {
	api := &closingSQSClient{MockSQSClient: &sqs_client.MockSQSClient{}}
	u, err := url.Parse(testQueueURL)
	require.NoError(t, err)

	client, err := New(context.Background(), u, WithAPI(api))
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.Equal(t, 1, api.closes)

	require.NoError(t, client.Close())
	assert.Equal(t, 1, api.closes)
}
