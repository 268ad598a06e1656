package domain

import "fmt"

type ChangeOp uint8

const (
	OpInsert ChangeOp = iota + 1
	OpUpdate
	OpDelete
)

var changeOpNames = map[ChangeOp]string{
	OpInsert: "INSERT",
	OpUpdate: "UPDATE",
	OpDelete: "DELETE",
}

func (o ChangeOp) String() string {
	if name, ok := changeOpNames[o]; ok {
		return name
	}

	return fmt.Sprintf("ChangeOp(%d)", o)
}

func (o ChangeOp) MarshalText() ([]byte, error) {
	name, ok := changeOpNames[o]
	if !ok {
		return nil, fmt.Errorf("invalid change op %d: %w", o, ErrValidation)
	}

	return []byte(name), nil
}

func (o *ChangeOp) UnmarshalText(text []byte) error {
	for op, name := range changeOpNames {
		if name == string(text) {
			*o = op
			return nil
		}
	}

	return fmt.Errorf("unknown change op %q: %w", text, ErrValidation)
}

// MemberChange is one row mutation of room_users as delivered by the change feed.
// For OpDelete, Member holds the removed row.
type MemberChange struct {
	Op     ChangeOp `json:"op"`
	Member Member   `json:"record"`
}
