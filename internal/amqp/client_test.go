package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday/internal/log"
)

func newOfflineClient() *Client {
	return &Client{
		exchangeName: "workday",
		queueName:    "payment_reminders",
		logger:       log.Discard(),
	}
}

func reminder() *PaymentReminderMessage {
	return NewPaymentReminderMessage("uid-1", "ana@example.com", "Ana", "€", 7,
		[]OverdueDay{{DateKey: "2024-03-04", Earnings: 120}}, 120)
}

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff, maxBackoff}
	for attempt, d := range want {
		assert.Equal(t, d, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, maxBackoff, exponentialBackoff(40))
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(amqp091.ErrClosed))
	assert.True(t, isConnectionError(errors.New("dial tcp: connection refused")))
	assert.True(t, isConnectionError(errors.New("unexpected EOF")))
	assert.True(t, isConnectionError(errors.New("write: broken pipe")))
	assert.False(t, isConnectionError(errors.New("PRECONDITION_FAILED - inequivalent arg 'durable'")))
}

func TestReminderPublishingBreaker(t *testing.T) {
	client := newOfflineClient()
	ctx := context.Background()

	for i := 0; i < maxFailures-1; i++ {
		client.recordFailure()
	}
	assert.False(t, client.isCircuitOpen(), "below the failure threshold")

	client.recordFailure()
	require.True(t, client.isCircuitOpen())
	err := client.PublishPaymentReminder(ctx, reminder())
	assert.ErrorIs(t, err, ErrCircuitOpen)

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, client.isCircuitOpen(), "open timeout elapsed")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&client.state))

	client.recordFailure()
	assert.Equal(t, StateOpen, atomic.LoadInt32(&client.state), "a half-open failure reopens")

	client.recordSuccess()
	assert.Equal(t, StateClosed, atomic.LoadInt32(&client.state))
	assert.Zero(t, atomic.LoadInt64(&client.failureCount))
}

func TestPublishPaymentReminderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newOfflineClient().PublishPaymentReminder(ctx, reminder())
	assert.ErrorIs(t, err, context.Canceled)
}

type ackRecorder struct {
	acked, nacked, requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func TestHandleReminderDelivery(t *testing.T) {
	body, err := reminder().ToJSON()
	require.NoError(t, err)
	sendFailed := errors.New("smtp: 421 try later")

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handlerErr  error
		want        ackRecorder
		wantCalled  bool
	}{
		{name: "sent", body: body, wantCalled: true, want: ackRecorder{acked: true}},
		{name: "unreadable dropped", body: []byte(`{"uid":`), want: ackRecorder{nacked: true}},
		{name: "send failure requeued", body: body, handlerErr: sendFailed, wantCalled: true, want: ackRecorder{nacked: true, requeued: true}},
		{name: "second failure dropped", body: body, redelivered: true, handlerErr: sendFailed, wantCalled: true, want: ackRecorder{nacked: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &ackRecorder{}
			called := false
			handler := func(_ context.Context, msg *PaymentReminderMessage) error {
				called = true
				assert.Equal(t, "uid-1", msg.UID)
				return tt.handlerErr
			}

			newOfflineClient().handle(context.Background(), amqp091.Delivery{
				Acknowledger: rec,
				Body:         tt.body,
				Redelivered:  tt.redelivered,
			}, handler)

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.want, *rec)
		})
	}
}

func TestNewPaymentReminderMessage(t *testing.T) {
	msg := reminder()

	_, err := uuid.Parse(msg.MessageID)
	assert.NoError(t, err)
	assert.Equal(t, "uid-1", msg.UID)
	assert.Equal(t, 7, msg.ReminderDays)
	assert.Len(t, msg.Overdue, 1)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
	assert.NotEqual(t, msg.MessageID, reminder().MessageID)
}

func TestPaymentReminderMessageJSON(t *testing.T) {
	msg := reminder()
	msg.Timestamp = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	raw, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dateKey":"2024-03-04"`)
	assert.Contains(t, string(raw), `"reminderDays":7`)

	parsed, err := PaymentReminderMessageFromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, msg.UID, parsed.UID)
	assert.Equal(t, msg.Total, parsed.Total)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))

	for _, body := range []string{`{"uid": 12`, `{"uid": "u", "total": "lots"}`, `{"messageId": "m-1"}`} {
		_, err := PaymentReminderMessageFromJSON([]byte(body))
		assert.Error(t, err, body)
	}
}
