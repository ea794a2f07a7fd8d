// Package notify bridges terminal grading events to the external
// notification system over redis pub/sub. Delivery is fire-and-forget: the
// session controller never waits on it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/event"
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Config struct {
	EventBus *event.Bus
	Redis    Redis
	Prefix   string
}

type Publisher struct {
	redis  Redis
	prefix string
}

// Notification is the wire payload consumed by notification subscribers.
type Notification struct {
	Event string               `json:"event"`
	Data  domain.GradingNotice `json:"data"`
}

func NewPublisher(c Config) *Publisher {
	p := &Publisher{
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	c.EventBus.Subscribe(domain.EventNameExamPassed, func(ctx context.Context, e event.Event) error {
		return p.publish(ctx, e.Name(), e.(domain.EventExamPassed).Notice)
	})
	c.EventBus.Subscribe(domain.EventNameExamFailed, func(ctx context.Context, e event.Event) error {
		return p.publish(ctx, e.Name(), e.(domain.EventExamFailed).Notice)
	})

	return p
}

// publish fans the notice out to the learner's own channel and the exam's
// broadcast channel.
func (p *Publisher) publish(ctx context.Context, name string, notice domain.GradingNotice) error {
	b, err := json.Marshal(Notification{
		Event: name,
		Data:  notice,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %v", name, err)
	}

	channels := []string{
		fmt.Sprintf("%s:user:%s", p.prefix, notice.UserID),
		fmt.Sprintf("%s:exam:%d", p.prefix, notice.ExamID),
	}

	var eg errgroup.Group
	for _, ch := range channels {
		ch := ch
		eg.Go(func() error {
			return p.redis.Publish(ctx, ch, b).Err()
		})
	}

	return eg.Wait()
}
