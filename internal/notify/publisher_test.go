package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/event"
	"github.com/openlms/assessment/internal/notify"
)

func TestPublisher_FansOutGradingEvents(t *testing.T) {
	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rc.Subscribe(ctx, "notices:user:u1", "notices:exam:1")
	defer sub.Close()
	for i := 0; i < 2; i++ {
		_, err := sub.Receive(ctx) // subscription confirmations
		require.NoError(t, err)
	}

	eb := event.NewBus()
	notify.NewPublisher(notify.Config{
		EventBus: eb,
		Redis:    rc,
		Prefix:   "notices",
	})

	notice := domain.GradingNotice{
		UserID:    "u1",
		ExamID:    1,
		AttemptID: "a1",
		IsPassed:  true,
		Score:     decimal.NewFromInt(20),
	}
	eb.Publish(ctx, domain.EventExamPassed{Notice: notice})
	eb.Stop()

	channels := make(map[string]bool)
	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		channels[msg.Channel] = true

		var n notify.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		assert.Equal(t, domain.EventNameExamPassed, n.Event)
		assert.Equal(t, "u1", n.Data.UserID)
		assert.True(t, n.Data.IsPassed)
		assert.True(t, n.Data.Score.Equal(decimal.NewFromInt(20)))
	}

	assert.True(t, channels["notices:user:u1"], "learner channel")
	assert.True(t, channels["notices:exam:1"], "exam broadcast channel")
}
