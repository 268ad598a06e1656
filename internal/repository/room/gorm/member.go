package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	"github.com/lulubrolive/server/internal/repository/room"
	omitnilpointers "github.com/lulubrolive/server/pkg/omit-nil-pointers"
)

func (r repo) getMember(tx *gorm.DB, roomId, memberId string) (domain.Member, error) {
	var model MemberModel
	if err := tx.First(&model, "id = ? AND room_id = ?", memberId, roomId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Member{}, room.ErrMemberNotFound
		}
		return domain.Member{}, err
	}

	return model.toDomain()
}

func (r repo) InsertMember(ctx context.Context, params *room.InsertMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	m := params.Member

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&MemberModel{}).
			Where("room_id = ? AND user_id = ?", m.RoomID, m.UserID).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return room.ErrMemberAlreadyExists
		}

		if err := tx.Create(memberToModel(m)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return room.ErrMemberAlreadyExists
			}
			return err
		}

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	ev, err := feed.MemberEvent(domain.OpInsert, m)
	r.publish(ctx, ev, err)

	return nil
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	m, err := r.getMember(r.db.WithContext(ctx), params.RoomID, params.MemberID)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}

func (r repo) GetMemberByUser(ctx context.Context, params *room.GetMemberByUserParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var model MemberModel
	err := r.db.WithContext(ctx).
		First(&model, "room_id = ? AND user_id = ?", params.RoomID, params.UserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = room.ErrMemberNotFound
		}
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	m, err := model.toDomain()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}

func (r repo) GetMembers(ctx context.Context, params *room.GetMembersParams) ([]domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var models []MemberModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", params.RoomID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	members := make([]domain.Member, 0, len(models))
	for _, model := range models {
		m, err := model.toDomain()
		if err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}
		members = append(members, m)
	}

	return members, nil
}

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
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(&MemberModel{}).
				Where("id = ? AND room_id = ?", params.MemberID, params.RoomID).
				Updates(fields)
			if res.Error != nil {
				return res.Error
			}
		}

		var err error
		m, err = r.getMember(tx, params.RoomID, params.MemberID)
		if err != nil {
			return err
		}

		// published while the row lock is held, so a racing delete publishes after
		ev, err := feed.MemberEvent(domain.OpUpdate, m)
		r.publish(ctx, ev, err)
		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}

func (r repo) DeleteMember(ctx context.Context, params *room.DeleteMemberParams) (domain.Member, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var m domain.Member
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = r.getMember(tx, params.RoomID, params.MemberID)
		if err != nil {
			return err
		}

		res := tx.Where("id = ?", m.ID).Delete(&MemberModel{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return room.ErrMemberNotFound
		}

		ev, err := feed.MemberEvent(domain.OpDelete, m)
		r.publish(ctx, ev, err)
		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Member{}, err
	}

	return m, nil
}
