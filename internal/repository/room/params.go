// Package room holds the store contract shared by the redis and gorm
// implementations.
package room

import "github.com/lulubrolive/server/internal/domain"

type CreateRoomParams struct {
	Room domain.Room   `json:"room"`
	Host domain.Member `json:"host"`
}

type GetRoomParams struct {
	RoomID string `json:"room_id"`
}

type SetRoomActiveParams struct {
	RoomID   string `json:"room_id"`
	IsActive bool   `json:"is_active"`
}

type InsertMemberParams struct {
	Member domain.Member `json:"member"`
}

type GetMemberParams struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
}

type GetMemberByUserParams struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type GetMembersParams struct {
	RoomID string `json:"room_id"`
}

type UpdateMemberParams struct {
	RoomID   string             `json:"room_id"`
	MemberID string             `json:"member_id"`
	Patch    domain.MemberPatch `json:"patch"`
}

type DeleteMemberParams struct {
	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id"`
}

type InsertMessageParams struct {
	Message domain.Message `json:"message"`
}

type GetMessagesParams struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

// ListActiveRoomsParams limits the listing; zero Limit means no limit.
type ListActiveRoomsParams struct {
	Limit int `json:"limit"`
}
