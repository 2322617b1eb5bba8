package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/domain/upload"
)

type mockSQS struct {
	SendMessageFunc    func(ctx context.Context, params *sqs.SendMessageInput) (*sqs.SendMessageOutput, error)
	ReceiveMessageFunc func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageFunc  func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, params)
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if m.ReceiveMessageFunc != nil {
		return m.ReceiveMessageFunc(ctx, params)
	}
	return &sqs.ReceiveMessageOutput{}, nil
}

func (m *mockSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if m.DeleteMessageFunc != nil {
		return m.DeleteMessageFunc(ctx, params)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSDispatcher_SendsJobJSON(t *testing.T) {
	var sent *sqs.SendMessageInput
	client := &mockSQS{
		SendMessageFunc: func(ctx context.Context, params *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
			sent = params
			return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
		},
	}
	d := NewSQSDispatcher(client, "https://sqs.test/jobs", zerolog.Nop())

	job := upload.TranscodeJob{SessionKey: "uploads/a/1.mp4", VideoID: "vid_1", SubmittedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, d.Dispatch(context.Background(), job))
	require.NotNil(t, sent)
	assert.Equal(t, "https://sqs.test/jobs", aws.ToString(sent.QueueUrl))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(sent.MessageBody)), &decoded))
	assert.Equal(t, "uploads/a/1.mp4", decoded["session_key"])
	assert.Equal(t, "vid_1", decoded["video_id"])
}

func TestSQSDispatcher_PropagatesError(t *testing.T) {
	client := &mockSQS{
		SendMessageFunc: func(ctx context.Context, params *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	d := NewSQSDispatcher(client, "q", zerolog.Nop())
	assert.Error(t, d.Dispatch(context.Background(), upload.TranscodeJob{}))
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, NewLogDispatcher(zerolog.Nop()).Dispatch(context.Background(), upload.TranscodeJob{SessionKey: "k"}))
}

func TestSQSResultSource_ReceiveAndAck(t *testing.T) {
	var deleted []string
	client := &mockSQS{
		ReceiveMessageFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			assert.Equal(t, int32(20), params.WaitTimeSeconds)
			return &sqs.ReceiveMessageOutput{Messages: []types.Message{
				{MessageId: aws.String("m-1"), Body: aws.String(`{"session_key":"k"}`), ReceiptHandle: aws.String("r-1")},
			}}, nil
		},
		DeleteMessageFunc: func(ctx context.Context, params *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
			deleted = append(deleted, aws.ToString(params.ReceiptHandle))
			return &sqs.DeleteMessageOutput{}, nil
		},
	}
	src := NewSQSResultSource(client, "https://sqs.test/results")

	msgs, err := src.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m-1", msgs[0].ID)
	assert.JSONEq(t, `{"session_key":"k"}`, string(msgs[0].Body))

	require.NoError(t, src.Ack(context.Background(), msgs[0]))
	assert.Equal(t, []string{"r-1"}, deleted)
}
