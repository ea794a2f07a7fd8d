package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlms/assessment/internal/domain"
	"github.com/openlms/assessment/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	var (
		passed = domain.EventExamPassed{Notice: domain.GradingNotice{UserID: "u1", ExamID: 1, AttemptID: "a1", IsPassed: true}}
		failed = domain.EventExamFailed{Notice: domain.GradingNotice{UserID: "u2", ExamID: 1, AttemptID: "a2"}}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a subscriber only receives the event it subscribed to": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{passed, failed},
					subscribers: []subscriber{
						{
							name:        "notifier",
							subscribeTo: []string{domain.EventNameExamPassed},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{passed}, out.received["notifier"])
			},
		},

		"repeated events are all delivered": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{failed, failed},
					subscribers: []subscriber{
						{
							name:        "notifier",
							subscribeTo: []string{domain.EventNameExamFailed},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{failed, failed}, out.received["notifier"])
			},
		},

		"one event reaches every subscriber": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{passed},
					subscribers: []subscriber{
						{
							name:        "notifier",
							subscribeTo: []string{domain.EventNameExamPassed},
						},
						{
							name:        "audit",
							subscribeTo: []string{domain.EventNameExamPassed, domain.EventNameExamFailed},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{passed}, out.received["notifier"])
				assert.ElementsMatch(t, []event.Event{passed}, out.received["audit"])
			},
		},

		"mixed outcomes are routed by name": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{passed, failed, passed},
					subscribers: []subscriber{
						{
							name:        "celebrations",
							subscribeTo: []string{domain.EventNameExamPassed},
						},
						{
							name:        "retries",
							subscribeTo: []string{domain.EventNameExamFailed},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{passed, passed}, out.received["celebrations"])
				assert.ElementsMatch(t, []event.Event{failed}, out.received["retries"])
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				s := s
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_HandlerFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	b := event.NewBus()

	var (
		mu        sync.Mutex
		delivered int
	)
	b.Subscribe(domain.EventNameExamPassed, func(context.Context, event.Event) error {
		return errors.New("boom")
	})
	b.Subscribe(domain.EventNameExamPassed, func(context.Context, event.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), domain.EventExamPassed{})
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, delivered)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
