package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday/internal/amqp"
	"workday/internal/core"
	"workday/internal/docstore/memory"
	"workday/internal/log"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.PaymentReminderMessage
	err  error
}

func (r *recordingPublisher) PublishPaymentReminder(_ context.Context, msg *amqp.PaymentReminderMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func unpaid(start, end string) core.WorkDay {
	return core.WorkDay{
		Shift1:         core.WorkShift{Start: start, End: end},
		PaymentPending: core.Bool(true),
	}
}

func setup(t *testing.T) (*memory.Store, *recordingPublisher, *Processor) {
	t.Helper()
	ctx := context.Background()
	docs := memory.New()
	t.Cleanup(func() { docs.Close() })

	require.NoError(t, docs.SetProfile(ctx, core.UserProfile{
		UID:                 "w1",
		Email:               "w1@example.com",
		WorkerName:          "Ana",
		HourlyRate:          10,
		CurrencySymbol:      "$",
		PaymentReminderDays: 7,
		Role:                core.RoleWorker,
	}))
	require.NoError(t, docs.SetWorkDay(ctx, "w1", "2024-03-01", unpaid("09:00", "17:00")))
	require.NoError(t, docs.SetWorkDay(ctx, "w1", "2024-03-02", unpaid("09:00", "13:00")))
	// Recent, not yet overdue.
	require.NoError(t, docs.SetWorkDay(ctx, "w1", "2024-03-14", unpaid("09:00", "17:00")))
	// Paid.
	require.NoError(t, docs.SetWorkDay(ctx, "w1", "2024-03-03", core.WorkDay{Shift1: core.WorkShift{Start: "09:00", End: "17:00"}}))

	pub := &recordingPublisher{}
	p := NewProcessor(docs, pub, DefaultConfig(), log.Discard())
	p.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local) }
	return docs, pub, p
}

func TestRunOncePublishesOverdueDays(t *testing.T) {
	_, pub, p := setup(t)

	n, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "w1", msg.UID)
	assert.Equal(t, "w1@example.com", msg.Email)
	assert.Equal(t, 7, msg.ReminderDays)
	require.Len(t, msg.Overdue, 2)
	assert.Equal(t, "2024-03-01", msg.Overdue[0].DateKey)
	assert.Equal(t, "2024-03-02", msg.Overdue[1].DateKey)
	assert.InDelta(t, 120.0, msg.Total, 0.001)
}

func TestRunOnceSuppressesDuplicates(t *testing.T) {
	docs, pub, p := setup(t)
	ctx := context.Background()

	_, err := p.RunOnce(ctx)
	require.NoError(t, err)
	n, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, pub.count())

	// A new overdue day changes the set and triggers another reminder.
	require.NoError(t, docs.SetWorkDay(ctx, "w1", "2024-03-05", unpaid("10:00", "12:00")))
	n, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunOnceSkipsIneligibleProfiles(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*core.UserProfile)
	}{
		{"payer role", func(p *core.UserProfile) { p.Role = core.RolePayer }},
		{"no email", func(p *core.UserProfile) { p.Email = "" }},
		{"reminders disabled", func(p *core.UserProfile) { p.PaymentReminderDays = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, pub, p := setup(t)
			ctx := context.Background()
			sp, err := docs.GetProfile(ctx, "w1")
			require.NoError(t, err)
			profile := sp.UserProfile
			tt.modify(&profile)
			require.NoError(t, docs.SetProfile(ctx, profile))

			n, err := p.RunOnce(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			assert.Equal(t, 0, pub.count())
		})
	}
}

func TestRunOncePublishFailureIsRetried(t *testing.T) {
	_, pub, p := setup(t)
	ctx := context.Background()
	pub.err = errors.New("broker down")

	n, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pub.err = nil
	n, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessorLifecycle(t *testing.T) {
	_, pub, p := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.False(t, p.IsRunning())
	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx), "second start must fail")

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(context.Background()))
	assert.False(t, p.IsRunning())
	assert.NoError(t, p.Stop(context.Background()), "stopping a stopped processor is a no-op")
}

func TestRunStopsWithContext(t *testing.T) {
	_, _, p := setup(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	assert.Eventually(t, p.IsRunning, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
