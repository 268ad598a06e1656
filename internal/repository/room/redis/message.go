package redis

import (
	"context"
	"encoding/json"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	feedredis "github.com/lulubrolive/server/internal/repository/feed/redis"
	"github.com/lulubrolive/server/internal/repository/room"
)

func (r repo) getMessageListKey(roomId string) string {
	return "room:" + roomId + ":messages"
}

func (r repo) InsertMessage(ctx context.Context, params *room.InsertMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	data, err := json.Marshal(params.Message)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	ev, err := feed.MessageEvent(params.Message)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, r.getMessageListKey(params.Message.RoomID), data)
	feedredis.Publish(ctx, pipe, ev)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetMessages returns the latest Limit messages in ascending order.
func (r repo) GetMessages(ctx context.Context, params *room.GetMessagesParams) ([]domain.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	start := int64(0)
	if params.Limit > 0 {
		start = -int64(params.Limit)
	}

	raw, err := r.rc.LRange(ctx, r.getMessageListKey(params.RoomID), start, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	messages := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
