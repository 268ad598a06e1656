package gorm

import (
	"time"

	"github.com/lulubrolive/server/internal/domain"
)

type RoomModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:255;not null"`
	VideoURL  string    `gorm:"column:youtube_url;size:2048;not null"`
	HostID    string    `gorm:"size:64;not null"`
	IsActive  bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (RoomModel) TableName() string {
	return "rooms"
}

type MemberModel struct {
	ID       string    `gorm:"primaryKey;size:36"`
	RoomID   string    `gorm:"size:36;not null;uniqueIndex:idx_room_user"`
	UserID   string    `gorm:"size:64;not null;uniqueIndex:idx_room_user"`
	Username string    `gorm:"size:255;not null"`
	Role     string    `gorm:"size:16;not null"`
	Status   string    `gorm:"size:16;not null"`
	JoinedAt time.Time `gorm:"not null;index"`
}

func (MemberModel) TableName() string {
	return "room_users"
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;not null;index:idx_room_created"`
	UserID    string    `gorm:"size:64;not null"`
	Username  string    `gorm:"size:255;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_room_created"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func roomToModel(r domain.Room) *RoomModel {
	return &RoomModel{
		ID:        r.ID,
		Name:      r.Name,
		VideoURL:  r.VideoURL,
		HostID:    r.HostID,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

func (m RoomModel) toDomain() domain.Room {
	return domain.Room{
		ID:        m.ID,
		Name:      m.Name,
		VideoURL:  m.VideoURL,
		HostID:    m.HostID,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func memberToModel(m domain.Member) *MemberModel {
	return &MemberModel{
		ID:       m.ID,
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Username: m.Username,
		Role:     m.Role.String(),
		Status:   m.Status.String(),
		JoinedAt: m.JoinedAt,
	}
}

func (m MemberModel) toDomain() (domain.Member, error) {
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
		JoinedAt: m.JoinedAt.UTC(),
	}, nil
}

func messageToModel(m domain.Message) *MessageModel {
	return &MessageModel{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func (m MessageModel) toDomain() domain.Message {
	return domain.Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
