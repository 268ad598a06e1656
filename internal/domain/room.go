package domain

import "time"

// Room is immutable after creation except for IsActive.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VideoURL  string    `json:"youtube_url"`
	HostID    string    `json:"host_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is an append-only chat message.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
