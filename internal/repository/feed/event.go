// Package feed defines the change-notification events published for every
// row mutation, keyed by room.
package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lulubrolive/server/internal/domain"
)

// Kind names a record kind, mirroring the store's tables.
type Kind string

const (
	KindRooms    Kind = "rooms"
	KindMembers  Kind = "room_users"
	KindMessages Kind = "messages"
)

func Channel(kind Kind, roomID string) string {
	return "room:" + roomID + ":" + string(kind)
}

// Subscription delivers the events of one channel until closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Event is one row mutation. For deletes, Payload holds the removed record.
type Event struct {
	Kind      Kind            `json:"kind"`
	Op        domain.ChangeOp `json:"op"`
	RoomID    string          `json:"room_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(kind Kind, op domain.ChangeOp, roomID string, record any) (Event, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}

	return Event{
		Kind:      kind,
		Op:        op,
		RoomID:    roomID,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

func MemberEvent(op domain.ChangeOp, m domain.Member) (Event, error) {
	return NewEvent(KindMembers, op, m.RoomID, m)
}

func MessageEvent(m domain.Message) (Event, error) {
	return NewEvent(KindMessages, domain.OpInsert, m.RoomID, m)
}

func RoomEvent(op domain.ChangeOp, r domain.Room) (Event, error) {
	return NewEvent(KindRooms, op, r.ID, r)
}

func (e Event) Channel() string {
	return Channel(e.Kind, e.RoomID)
}

func (e Event) MemberChange() (domain.MemberChange, error) {
	if e.Kind != KindMembers {
		return domain.MemberChange{}, fmt.Errorf("event kind %s is not %s", e.Kind, KindMembers)
	}

	var m domain.Member
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return domain.MemberChange{}, fmt.Errorf("failed to unmarshal member: %w", err)
	}

	return domain.MemberChange{Op: e.Op, Member: m}, nil
}

func (e Event) Message() (domain.Message, error) {
	if e.Kind != KindMessages {
		return domain.Message{}, fmt.Errorf("event kind %s is not %s", e.Kind, KindMessages)
	}

	var m domain.Message
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return domain.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return m, nil
}

func (e Event) Room() (domain.Room, error) {
	if e.Kind != KindRooms {
		return domain.Room{}, fmt.Errorf("event kind %s is not %s", e.Kind, KindRooms)
	}

	var r domain.Room
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return domain.Room{}, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return r, nil
}
