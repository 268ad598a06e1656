package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	feedredis "github.com/lulubrolive/server/internal/repository/feed/redis"
	"github.com/lulubrolive/server/internal/repository/room"
	omitnilpointers "github.com/lulubrolive/server/pkg/omit-nil-pointers"
)

type memberModel struct {
	ID       string `redis:"id"`
	RoomID   string `redis:"room_id"`
	UserID   string `redis:"user_id"`
	Username string `redis:"username"`
	Role     string `redis:"role"`
	Status   string `redis:"status"`
	JoinedAt int64  `redis:"joined_at"`
}

func newMemberModel(m domain.Member) memberModel {
	return memberModel{
		ID:       m.ID,
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Username: m.Username,
		Role:     m.Role.String(),
		Status:   m.Status.String(),
		JoinedAt: toNano(m.JoinedAt),
	}
}

func (m memberModel) toDomain() (domain.Member, error) {
	role, err := domain.ParseRole(m.Role)
	if err != nil {
		return domain.Member{}, err
	}

	status, err := domain.ParseStatus(m.Status)
	if err != nil {
		return domain.Member{}, err
	}

	return domain.Member{
		ID:       m.ID,
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Username: m.Username,
		Role:     role,
		Status:   status,
		JoinedAt: fromNano(m.JoinedAt),
	}, nil
}

func (r repo) getMemberKey(memberId string) string {
	return "member:" + memberId
}

func (r repo) getMemberListKey(roomId string) string {
	return "room:" + roomId + ":members"
}

func (r repo) getParticipantKey(roomId, userId string) string {
	return "room:" + roomId + ":participant:" + userId
}

func (r repo) setMember(ctx context.Context, pipe redis.Pipeliner, m domain.Member) {
	r.HSetStruct(ctx, pipe, r.getMemberKey(m.ID), newMemberModel(m))
	pipe.ZAdd(ctx, r.getMemberListKey(m.RoomID), redis.Z{
		Score:  score(m.JoinedAt),
		Member: m.ID,
	})
	pipe.Set(ctx, r.getParticipantKey(m.RoomID, m.UserID), m.ID, 0)
}

func (r repo) getMember(ctx context.Context, c redis.Cmdable, roomId, memberId string) (domain.Member, error) {
	var model memberModel
	if err := c.HGetAll(ctx, r.getMemberKey(memberId)).Scan(&model); err != nil {
		return domain.Member{}, err
	}

	if model.ID == "" || model.RoomID != roomId {
		return domain.Member{}, room.ErrMemberNotFound
	}

	return model.toDomain()
}

// InsertMember fails with ErrMemberAlreadyExists when the participant already
// has a row in the room.
func (r repo) InsertMember(ctx context.Context, params *room.InsertMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	m := params.Member

	ev, err := feed.MemberEvent(domain.OpInsert, m)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	participantKey := r.getParticipantKey(m.RoomID, m.UserID)
	ok, err := r.rc.SetNX(ctx, participantKey, m.ID, 0).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberAlreadyExists)
		return room.ErrMemberAlreadyExists
	}

	pipe := r.rc.TxPipeline()
	r.setMember(ctx, pipe, m)
	feedredis.Publish(ctx, pipe, ev)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.rc.Del(ctx, participantKey)
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	m, err := r.getMember(ctx, r.rc, params.RoomID, params.MemberID)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}

func (r repo) GetMemberByUser(ctx context.Context, params *room.GetMemberByUserParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	memberId, err := r.rc.Get(ctx, r.getParticipantKey(params.RoomID, params.UserID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = room.ErrMemberNotFound
		}
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	m, err := r.getMember(ctx, r.rc, params.RoomID, memberId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}

// GetMembers returns the room's members in ascending join order.
func (r repo) GetMembers(ctx context.Context, params *room.GetMembersParams) ([]domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	memberIds, err := r.rc.ZRange(ctx, r.getMemberListKey(params.RoomID), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(memberIds))
	for _, memberId := range memberIds {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getMemberKey(memberId)))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	members := make([]domain.Member, 0, len(cmds))
	for _, cmd := range cmds {
		var model memberModel
		if err := cmd.Scan(&model); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		if model.ID == "" {
			continue
		}

		m, err := model.toDomain()
		if err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		members = append(members, m)
	}

	return members, nil
}

// watchMember runs fn with the member key watched, retrying while a
// concurrent write to the same row aborts the transaction.
func (r repo) watchMember(ctx context.Context, memberId string, fn func(tx *redis.Tx) error) error {
	key := r.getMemberKey(memberId)
	for i := 0; i < maxTxRetries; i++ {
		err := r.rc.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		r.logger.DebugContext(ctx, "member changed concurrently, retrying", "member_id", memberId, "attempt", i+1)
	}

	return ErrTxConflict
}

// UpdateMember applies the patch and publishes the updated row in the same
// transaction, so the feed sees row changes in commit order.
func (r repo) UpdateMember(ctx context.Context, params *room.UpdateMemberParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	fields, err := omitnilpointers.OmitNilPointers(map[string]any{
		"role":   params.Patch.Role,
		"status": params.Patch.Status,
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	var m domain.Member
	err = r.watchMember(ctx, params.MemberID, func(tx *redis.Tx) error {
		current, err := r.getMember(ctx, tx, params.RoomID, params.MemberID)
		if err != nil {
			return err
		}

		m = params.Patch.ApplyTo(current)
		ev, err := feed.MemberEvent(domain.OpUpdate, m)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(fields) > 0 {
				pipe.HSet(ctx, r.getMemberKey(m.ID), omitnilpointers.Pairs(fields)...)
			}
			return feedredis.Publish(ctx, pipe, ev)
		})
		return err
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}

// DeleteMember removes the row and publishes it as a delete event.
func (r repo) DeleteMember(ctx context.Context, params *room.DeleteMemberParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var m domain.Member
	err := r.watchMember(ctx, params.MemberID, func(tx *redis.Tx) error {
		var err error
		m, err = r.getMember(ctx, tx, params.RoomID, params.MemberID)
		if err != nil {
			return err
		}

		ev, err := feed.MemberEvent(domain.OpDelete, m)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, r.getMemberKey(m.ID))
			pipe.ZRem(ctx, r.getMemberListKey(m.RoomID), m.ID)
			pipe.Del(ctx, r.getParticipantKey(m.RoomID, m.UserID))
			return feedredis.Publish(ctx, pipe, ev)
		})
		return err
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}
