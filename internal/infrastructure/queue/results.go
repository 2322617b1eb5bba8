package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Message is one transcoder result pulled from a queue.
type Message struct {
	ID      string
	Body    []byte
	receipt string
}

// SQSResultSource long-polls the transcoder result queue.
type SQSResultSource struct {
	client      SQSAPI
	queueURL    string
	waitSeconds int32
	batchSize   int32
}

func NewSQSResultSource(client SQSAPI, queueURL string) *SQSResultSource {
	return &SQSResultSource{
		client:      client,
		queueURL:    queueURL,
		waitSeconds: 20,
		batchSize:   10,
	}
}

// Receive blocks for up to the long-poll window and returns whatever arrived.
func (s *SQSResultSource) Receive(ctx context.Context) ([]Message, error) {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.batchSize,
		WaitTimeSeconds:     s.waitSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive transcode results: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			ID:      aws.ToString(m.MessageId),
			Body:    []byte(aws.ToString(m.Body)),
			receipt: aws.ToString(m.ReceiptHandle),
		})
	}
	return messages, nil
}

// Ack deletes a handled message so it is not redelivered.
func (s *SQSResultSource) Ack(ctx context.Context, m Message) error {
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(m.receipt),
	})
	if err != nil {
		return fmt.Errorf("delete transcode result %s: %w", m.ID, err)
	}
	return nil
}
