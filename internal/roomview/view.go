// Package roomview binds one participant to one room. A View mirrors the
// room's roster through a projector fed by the change feed and ends when the
// participant is kicked or the room closes.
package roomview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/projector"
	"github.com/lulubrolive/server/internal/repository/feed"
	"github.com/lulubrolive/server/internal/service/room"
)

var (
	ErrKicked     = errors.New("participant was kicked")
	ErrRoomClosed = errors.New("room was closed")
	ErrFeedClosed = errors.New("change feed closed")
)

type iRoomService interface {
	GetRoom(context.Context, *room.GetRoomParams) (domain.Room, error)
	GetRoster(context.Context, *room.GetRosterParams) ([]domain.Member, error)
}

type iSubscriber interface {
	Subscribe(ctx context.Context, kind feed.Kind, roomID string) (feed.Subscription, error)
}

// Sink receives the view's output. Calls happen on the goroutine running Run.
type Sink interface {
	OnRoster(ctx context.Context, snapshot projector.Snapshot) error
	OnMessage(ctx context.Context, msg domain.Message) error
	OnKicked(ctx context.Context) error
	OnClosed(ctx context.Context) error
}

type View struct {
	roomId  string
	logger  *slog.Logger
	members feed.Subscription
	msgs    feed.Subscription
	rooms   feed.Subscription

	mu        sync.RWMutex
	projector *projector.Projector

	closeOnce sync.Once
	closeErr  error
}

// Open subscribes to the room's feeds first and then loads the snapshot, so
// no change between the two is lost.
func Open(ctx context.Context, roomService iRoomService, subscriber iSubscriber, logger *slog.Logger, roomId, participantId string) (*View, error) {
	v := &View{
		roomId:    roomId,
		logger:    logger,
		projector: projector.New(participantId),
	}

	var err error
	if v.members, err = subscriber.Subscribe(ctx, feed.KindMembers, roomId); err != nil {
		return nil, v.abort(fmt.Errorf("failed to subscribe to members: %w", domain.NewStoreError(err)))
	}

	if v.msgs, err = subscriber.Subscribe(ctx, feed.KindMessages, roomId); err != nil {
		return nil, v.abort(fmt.Errorf("failed to subscribe to messages: %w", domain.NewStoreError(err)))
	}

	if v.rooms, err = subscriber.Subscribe(ctx, feed.KindRooms, roomId); err != nil {
		return nil, v.abort(fmt.Errorf("failed to subscribe to room: %w", domain.NewStoreError(err)))
	}

	rm, err := roomService.GetRoom(ctx, &room.GetRoomParams{RoomId: roomId})
	if err != nil {
		return nil, v.abort(err)
	}

	roster, err := roomService.GetRoster(ctx, &room.GetRosterParams{RoomId: roomId})
	if err != nil {
		return nil, v.abort(err)
	}

	v.projector.Load(rm, roster)

	return v, nil
}

func (v *View) abort(err error) error {
	v.Close()
	return err
}

// Close releases every subscription. Safe to call more than once.
func (v *View) Close() error {
	v.closeOnce.Do(func() {
		var errs []error
		for _, sub := range []feed.Subscription{v.members, v.msgs, v.rooms} {
			if sub == nil {
				continue
			}
			if err := sub.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		v.closeErr = errors.Join(errs...)
	})

	return v.closeErr
}

func (v *View) RoomID() string {
	return v.roomId
}

func (v *View) Snapshot() projector.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.projector.Snapshot()
}

func (v *View) IsHostOrCoHost() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.projector.IsHostOrCoHost()
}

func (v *View) IsApprovedChatter() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.projector.IsApprovedChatter()
}

// Authorize checks a management action against the mirrored roster.
func (v *View) Authorize(action domain.Action, targetMemberId string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.projector.Authorize(action, targetMemberId)
}

// Run applies feed events in delivery order until ctx ends, the participant is
// kicked (ErrKicked) or the room closes (ErrRoomClosed). It closes the view on return.
func (v *View) Run(ctx context.Context, sink Sink) error {
	defer v.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-v.members.Events():
			if !ok {
				return ErrFeedClosed
			}
			if err := v.handleMemberEvent(ctx, ev, sink); err != nil {
				return err
			}
		case ev, ok := <-v.msgs.Events():
			if !ok {
				return ErrFeedClosed
			}
			if err := v.handleMessageEvent(ctx, ev, sink); err != nil {
				return err
			}
		case ev, ok := <-v.rooms.Events():
			if !ok {
				return ErrFeedClosed
			}
			if err := v.handleRoomEvent(ctx, ev, sink); err != nil {
				return err
			}
		}
	}
}

func (v *View) handleMemberEvent(ctx context.Context, ev feed.Event, sink Sink) error {
	change, err := ev.MemberChange()
	if err != nil {
		v.logger.WarnContext(ctx, "dropping member event", "error", err)
		return nil
	}

	v.mu.Lock()
	outcome := v.projector.Apply(change)
	snapshot := v.projector.Snapshot()
	v.mu.Unlock()

	v.logger.DebugContext(ctx, "member change applied", "op", change.Op, "member_id", change.Member.ID, "outcome", outcome)

	switch outcome {
	case projector.OutcomeKicked:
		if err := sink.OnKicked(ctx); err != nil {
			return err
		}
		return ErrKicked
	case projector.OutcomeRosterChanged, projector.OutcomeSelfChanged:
		return sink.OnRoster(ctx, snapshot)
	default:
		return nil
	}
}

func (v *View) handleMessageEvent(ctx context.Context, ev feed.Event, sink Sink) error {
	msg, err := ev.Message()
	if err != nil {
		v.logger.WarnContext(ctx, "dropping message event", "error", err)
		return nil
	}

	if msg.RoomID != v.roomId || !v.IsApprovedChatter() {
		return nil
	}

	return sink.OnMessage(ctx, msg)
}

func (v *View) handleRoomEvent(ctx context.Context, ev feed.Event, sink Sink) error {
	rm, err := ev.Room()
	if err != nil {
		v.logger.WarnContext(ctx, "dropping room event", "error", err)
		return nil
	}

	if rm.ID != v.roomId {
		return nil
	}

	if ev.Op != domain.OpDelete && rm.IsActive {
		return nil
	}

	if err := sink.OnClosed(ctx); err != nil {
		return err
	}

	return ErrRoomClosed
}
