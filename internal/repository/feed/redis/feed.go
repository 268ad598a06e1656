package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/lulubrolive/server/internal/repository/feed"
)

const eventBufferSize = 100

// Feed publishes and subscribes to change events over redis pub/sub.
type Feed struct {
	rc     *redis.Client
	logger *slog.Logger
}

func New(rc *redis.Client, logger *slog.Logger) *Feed {
	return &Feed{
		rc:     rc,
		logger: logger,
	}
}

// Publish queues a PUBLISH of ev on c, which may be a client or a transaction pipeline.
func Publish(ctx context.Context, c redis.Cmdable, ev feed.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return c.Publish(ctx, ev.Channel(), data).Err()
}

func (f *Feed) Publish(ctx context.Context, ev feed.Event) error {
	f.logger.DebugContext(ctx, "called", "channel", ev.Channel(), "op", ev.Op)
	if err := Publish(ctx, f.rc, ev); err != nil {
		f.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

type subscription struct {
	pubsub *redis.PubSub
	events chan feed.Event
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Subscribe returns once redis has confirmed the subscription, so no event
// published afterwards is missed.
func (f *Feed) Subscribe(ctx context.Context, kind feed.Kind, roomID string) (feed.Subscription, error) {
	channel := feed.Channel(kind, roomID)
	f.logger.DebugContext(ctx, "called", "channel", channel)

	pubsub := f.rc.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		f.logger.DebugContext(ctx, "returned", "error", err)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		pubsub: pubsub,
		events: make(chan feed.Event, eventBufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go sub.process(subCtx, f.logger)

	return sub, nil
}

func (s *subscription) Events() <-chan feed.Event {
	return s.events
}

// Close unsubscribes and closes the events channel. Safe to call more than once.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		<-s.done
	})

	return err
}

func (s *subscription) process(ctx context.Context, logger *slog.Logger) {
	defer close(s.done)
	defer close(s.events)

	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var ev feed.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WarnContext(ctx, "dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}

			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
