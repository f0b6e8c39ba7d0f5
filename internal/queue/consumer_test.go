package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendBot/internal/cache"
	"AttendBot/internal/model"
	pkgerrors "AttendBot/pkg/errors"
)

type fakeNotifier struct {
	delivered []model.ReminderMessage
	failNext  bool
}

func (n *fakeNotifier) NotifyReminder(_ context.Context, msg model.ReminderMessage) error {
	if n.failNext {
		n.failNext = false
		return errors.New("chat gateway down")
	}
	n.delivered = append(n.delivered, msg)
	return nil
}

func newConsumer(t *testing.T, notifier Notifier) *ReminderConsumer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewReminderConsumer(notifier, cache.NewReminderMarks(rdb, "test"), nil, nil)
}

func body(t *testing.T, msg model.ReminderMessage) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func TestReminderConsumerIsIdempotent(t *testing.T) {
	notifier := &fakeNotifier{}
	c := newConsumer(t, notifier)
	ctx := context.Background()
	msg := model.ReminderMessage{
		MessageID: "reminder:u1:2025-06-17:pre_completion:1750123800",
		UserID:    "u1",
		WorkDate:  "2025-06-17",
		Kind:      model.ReminderKindPreCompletion,
	}

	require.NoError(t, c.Handle(ctx, body(t, msg)))
	err := c.Handle(ctx, body(t, msg))
	assert.True(t, pkgerrors.IsSkip(err))
	assert.Len(t, notifier.delivered, 1)
}

func TestReminderConsumerRetriesAfterNotifyFailure(t *testing.T) {
	notifier := &fakeNotifier{failNext: true}
	c := newConsumer(t, notifier)
	ctx := context.Background()
	msg := model.ReminderMessage{MessageID: "m1", UserID: "u1", Kind: model.ReminderKindFinal}

	err := c.Handle(ctx, body(t, msg))
	require.Error(t, err)
	assert.False(t, pkgerrors.IsSkip(err))

	require.NoError(t, c.Handle(ctx, body(t, msg)))
	assert.Len(t, notifier.delivered, 1)
}

func TestReminderConsumerSkipsMalformed(t *testing.T) {
	c := newConsumer(t, &fakeNotifier{})
	err := c.Handle(context.Background(), []byte("{not json"))
	assert.True(t, pkgerrors.IsSkip(err))
}

func TestReminderRoutingKey(t *testing.T) {
	assert.Equal(t, "attendance.reminder.pre_completion", ReminderRoutingKey(model.ReminderKindPreCompletion))
	assert.Equal(t, "attendance.reminder.final", ReminderRoutingKey(model.ReminderKindFinal))
}

