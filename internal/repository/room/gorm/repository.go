// Package gorm is the SQL implementation of the room store.
package gorm

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	"github.com/lulubrolive/server/internal/repository/room"
)

type publisher interface {
	Publish(ctx context.Context, ev feed.Event) error
}

type repo struct {
	db     *gorm.DB
	pub    publisher
	logger *slog.Logger
}

func NewRepo(db *gorm.DB, pub publisher, logger *slog.Logger) *repo {
	return &repo{
		db:     db,
		pub:    pub,
		logger: logger,
	}
}

func (r repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&RoomModel{}, &MemberModel{}, &MessageModel{})
}

// publish never fails the write. Member updates and deletes call it inside
// their transaction, after the row write, so events of one row follow lock order.
func (r repo) publish(ctx context.Context, ev feed.Event, err error) {
	if err == nil {
		err = r.pub.Publish(ctx, ev)
	}

	if err != nil {
		r.logger.WarnContext(ctx, "failed to publish change", "kind", ev.Kind, "op", ev.Op, "error", err)
	}
}

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(roomToModel(params.Room)).Error; err != nil {
			return err
		}

		return tx.Create(memberToModel(params.Host)).Error
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	ev, err := feed.RoomEvent(domain.OpInsert, params.Room)
	r.publish(ctx, ev, err)
	ev, err = feed.MemberEvent(domain.OpInsert, params.Host)
	r.publish(ctx, ev, err)

	return nil
}

func (r repo) getRoom(ctx context.Context, roomId string) (domain.Room, error) {
	var model RoomModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", roomId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Room{}, room.ErrRoomNotFound
		}
		return domain.Room{}, err
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

func (r repo) ListActiveRooms(ctx context.Context, params *room.ListActiveRoomsParams) ([]domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC")
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var models []RoomModel
	if err := query.Find(&models).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = model.toDomain()
	}

	return rooms, nil
}

func (r repo) SetRoomActive(ctx context.Context, params *room.SetRoomActiveParams) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var rm domain.Room
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model RoomModel
		if err := tx.First(&model, "id = ?", params.RoomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return room.ErrRoomNotFound
			}
			return err
		}

		if err := tx.Model(&model).Update("is_active", params.IsActive).Error; err != nil {
			return err
		}

		rm = model.toDomain()
		rm.IsActive = params.IsActive
		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}

	ev, err := feed.RoomEvent(domain.OpUpdate, rm)
	r.publish(ctx, ev, err)

	return rm, nil
}
