package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/koneque/marketplace-escrow/pkg/scheduler/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDelaySeconds(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int32(0), DelaySeconds(now, now.Add(-time.Minute)))
	assert.Equal(t, int32(2), DelaySeconds(now, now.Add(1500*time.Millisecond)))
	assert.Equal(t, int32(900), DelaySeconds(now, now.Add(72*time.Hour)))
}

func TestSQSScheduler(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	due := now.Add(10 * time.Minute)

	t.Run("Success", func(t *testing.T) {
		client := mocks.NewSQSAPI(t)
		s := NewSQSScheduler(client, "https://sqs.local/finalize")
		s.Now = func() time.Time { return now }

		client.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqs.SendMessageInput) bool {
			msg, err := ParseFinalizeMessage(aws.ToString(in.MessageBody))
			return err == nil && msg.TransactionID == 12 && msg.DueAt.Equal(due) && in.DelaySeconds == 600
		})).Return(&sqs.SendMessageOutput{}, nil).Once()

		require.NoError(t, s.ScheduleFinalize(context.Background(), 12, due))
	})

	t.Run("Send Fails", func(t *testing.T) {
		client := mocks.NewSQSAPI(t)
		s := NewSQSScheduler(client, "q")
		client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("denied")).Once()

		err := s.ScheduleFinalize(context.Background(), 1, due)
		assert.ErrorContains(t, err, "failed to send message to SQS")
	})
}

func TestParseFinalizeMessage(t *testing.T) {
	t.Run("Missing ID Fails", func(t *testing.T) {
		_, err := ParseFinalizeMessage(`{"due_at":"2025-06-01T00:00:00Z"}`)
		assert.Error(t, err)
	})

	t.Run("Malformed Fails", func(t *testing.T) {
		_, err := ParseFinalizeMessage(`{`)
		assert.Error(t, err)
	})
}

func TestLocal(t *testing.T) {
	l := NewLocal(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer l.Stop()

	var fired atomic.Uint64
	done := make(chan struct{})
	l.SetHandler(func(_ context.Context, txID uint64) error {
		fired.Store(txID)
		close(done)
		return nil
	})

	require.NoError(t, l.ScheduleFinalize(context.Background(), 5, time.Now().Add(10*time.Millisecond)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	assert.Equal(t, uint64(5), fired.Load())
	assert.Eventually(t, func() bool { return l.Pending() == 0 }, time.Second, 5*time.Millisecond)
}
