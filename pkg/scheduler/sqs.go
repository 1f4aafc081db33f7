package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MaxDelay is the longest delay SQS accepts on a single message. Longer
// grace periods are covered by re-enqueueing until the due time.
const MaxDelay = 15 * time.Minute

// SQSAPI is the part of the SQS client the scheduler uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSScheduler implements the FinalizeScheduler interface using AWS SQS.
type SQSScheduler struct {
	Client   SQSAPI
	QueueURL string
	Now      func() time.Time
}

// NewSQSScheduler creates a new SQSScheduler.
func NewSQSScheduler(client SQSAPI, queueURL string) *SQSScheduler {
	return &SQSScheduler{
		Client:   client,
		QueueURL: queueURL,
		Now:      time.Now,
	}
}

// Make sure we conform to the interface
var _ FinalizeScheduler = (*SQSScheduler)(nil)

// ScheduleFinalize sends a delayed message; the delay is capped at MaxDelay.
func (s *SQSScheduler) ScheduleFinalize(ctx context.Context, txID uint64, due time.Time) error {
	body, err := json.Marshal(FinalizeMessage{TransactionID: txID, DueAt: due.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal finalize message for SQS: %w", err)
	}

	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(s.QueueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: DelaySeconds(s.Now(), due),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"transaction_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatUint(txID, 10)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return nil
}

// DelaySeconds returns the SQS delay for a message due at due, rounded up
// and clamped to [0, MaxDelay].
func DelaySeconds(now, due time.Time) int32 {
	wait := due.Sub(now)
	if wait <= 0 {
		return 0
	}
	if wait > MaxDelay {
		wait = MaxDelay
	}
	secs := int32(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return secs
}

// ParseFinalizeMessage decodes a queue message body.
func ParseFinalizeMessage(body string) (FinalizeMessage, error) {
	var msg FinalizeMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal finalize message: %w", err)
	}
	if msg.TransactionID == 0 {
		return msg, fmt.Errorf("finalize message has no transaction id")
	}
	return msg, nil
}
