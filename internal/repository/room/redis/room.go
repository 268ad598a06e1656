package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	feedredis "github.com/lulubrolive/server/internal/repository/feed/redis"
	"github.com/lulubrolive/server/internal/repository/room"
)

const activeRoomsKey = "rooms:active"

type roomModel struct {
	ID        string `redis:"id"`
	Name      string `redis:"name"`
	VideoURL  string `redis:"youtube_url"`
	HostID    string `redis:"host_id"`
	IsActive  bool   `redis:"is_active"`
	CreatedAt int64  `redis:"created_at"`
}

func newRoomModel(rm domain.Room) roomModel {
	return roomModel{
		ID:        rm.ID,
		Name:      rm.Name,
		VideoURL:  rm.VideoURL,
		HostID:    rm.HostID,
		IsActive:  rm.IsActive,
		CreatedAt: toNano(rm.CreatedAt),
	}
}

func (m roomModel) toDomain() domain.Room {
	return domain.Room{
		ID:        m.ID,
		Name:      m.Name,
		VideoURL:  m.VideoURL,
		HostID:    m.HostID,
		IsActive:  m.IsActive,
		CreatedAt: fromNano(m.CreatedAt),
	}
}

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

// CreateRoom writes the room and its host membership in one transaction.
func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	roomEvent, err := feed.RoomEvent(domain.OpInsert, params.Room)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	memberEvent, err := feed.MemberEvent(domain.OpInsert, params.Host)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	pipe := r.rc.TxPipeline()

	r.HSetStruct(ctx, pipe, r.getRoomKey(params.Room.ID), newRoomModel(params.Room))
	if params.Room.IsActive {
		pipe.ZAdd(ctx, activeRoomsKey, redis.Z{
			Score:  score(params.Room.CreatedAt),
			Member: params.Room.ID,
		})
	}
	r.setMember(ctx, pipe, params.Host)
	feedredis.Publish(ctx, pipe, roomEvent)
	feedredis.Publish(ctx, pipe, memberEvent)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) getRoom(ctx context.Context, roomId string) (domain.Room, error) {
	var model roomModel
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomId)).Scan(&model); err != nil {
		return domain.Room{}, err
	}

	if model.ID == "" {
		return domain.Room{}, room.ErrRoomNotFound
	}

	return model.toDomain(), nil
}

func (r repo) GetRoom(ctx context.Context, params *room.GetRoomParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	rm, err := r.getRoom(ctx, params.RoomID)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	return rm, nil
}

// ListActiveRooms returns active rooms, newest first.
func (r repo) ListActiveRooms(ctx context.Context, params *room.ListActiveRoomsParams) ([]domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	stop := int64(-1)
	if params.Limit > 0 {
		stop = int64(params.Limit) - 1
	}

	roomIds, err := r.rc.ZRevRange(ctx, activeRoomsKey, 0, stop).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(roomIds))
	for _, roomId := range roomIds {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getRoomKey(roomId)))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(cmds))
	for _, cmd := range cmds {
		var model roomModel
		if err := cmd.Scan(&model); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		if model.ID == "" || !model.IsActive {
			continue
		}

		rooms = append(rooms, model.toDomain())
	}

	return rooms, nil
}

func (r repo) SetRoomActive(ctx context.Context, params *room.SetRoomActiveParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	rm, err := r.getRoom(ctx, params.RoomID)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	rm.IsActive = params.IsActive
	ev, err := feed.RoomEvent(domain.OpUpdate, rm)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, r.getRoomKey(rm.ID), "is_active", rm.IsActive)
	if rm.IsActive {
		pipe.ZAdd(ctx, activeRoomsKey, redis.Z{
			Score:  score(rm.CreatedAt),
			Member: rm.ID,
		})
	} else {
		pipe.ZRem(ctx, activeRoomsKey, rm.ID)
	}
	feedredis.Publish(ctx, pipe, ev)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	return rm, nil
}
