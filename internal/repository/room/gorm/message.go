package gorm

import (
	"context"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	"github.com/lulubrolive/server/internal/repository/room"
)

func (r repo) InsertMessage(ctx context.Context, params *room.InsertMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	if err := r.db.WithContext(ctx).Create(messageToModel(params.Message)).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	ev, err := feed.MessageEvent(params.Message)
	r.publish(ctx, ev, err)

	return nil
}

// GetMessages returns the latest Limit messages in ascending order.
func (r repo) GetMessages(ctx context.Context, params *room.GetMessagesParams) ([]domain.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	query := r.db.WithContext(ctx).
		Where("room_id = ?", params.RoomID).
		Order("created_at DESC").
		Order("id DESC")
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var models []MessageModel
	if err := query.Find(&models).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[len(models)-1-i] = model.toDomain()
	}

	return messages, nil
}
