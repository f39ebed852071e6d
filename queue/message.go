package queue

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is one received message. ReceiptHandle is only valid for Delete on
// the queue it was received from.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	MD5OfBody     string
	Attributes    map[string]string
}

func messageFromSDK(m types.Message) Message {
	return Message{
		ID:            aws.ToString(m.MessageId),
		Body:          aws.ToString(m.Body),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		MD5OfBody:     aws.ToString(m.MD5OfBody),
		Attributes:    m.Attributes,
	}
}

// SendResult describes an accepted message. SequenceNumber is only set for
// FIFO queues.
type SendResult struct {
	MessageID      string
	MD5OfBody      string
	SequenceNumber string
}

// DeleteResult carries the request id of a successful delete.
type DeleteResult struct {
	RequestID string
}
