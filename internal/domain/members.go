package domain

import (
	"fmt"
	"time"
)

type Role uint8

const (
	RoleGuest Role = iota + 1
	RoleCoHost
	RoleHost
)

var roleNames = map[Role]string{
	RoleGuest:  "guest",
	RoleCoHost: "co-host",
	RoleHost:   "host",
}

func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}

	return 0, fmt.Errorf("unknown role %q: %w", s, ErrValidation)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}

	return fmt.Sprintf("Role(%d)", r)
}

func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// CanManage reports whether the role carries management rights.
func (r Role) CanManage() bool {
	switch r {
	case RoleHost, RoleCoHost:
		return true
	case RoleGuest:
		return false
	default:
		return false
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid role %d: %w", r, ErrValidation)
	}

	return []byte(roleNames[r]), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = role
	return nil
}

type Status uint8

const (
	StatusWaiting Status = iota + 1
	StatusApproved
	StatusKicked
)

var statusNames = map[Status]string{
	StatusWaiting:  "waiting",
	StatusApproved: "approved",
	StatusKicked:   "kicked",
}

func ParseStatus(s string) (Status, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}

	return 0, fmt.Errorf("unknown status %q: %w", s, ErrValidation)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Status(%d)", s)
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status %d: %w", s, ErrValidation)
	}

	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	status, err := ParseStatus(string(text))
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Member is a participant's role/status record within one room (a room_users row).
type Member struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

func (m Member) IsApproved() bool {
	return m.Status == StatusApproved
}

// MemberPatch carries the mutable fields of a member row. Nil fields are left untouched.
type MemberPatch struct {
	Role   *Role
	Status *Status
}

func (p MemberPatch) IsEmpty() bool {
	return p.Role == nil && p.Status == nil
}

func (p MemberPatch) ApplyTo(m Member) Member {
	if p.Role != nil {
		m.Role = *p.Role
	}
	if p.Status != nil {
		m.Status = *p.Status
	}

	return m
}

func StatusPatch(status Status) MemberPatch {
	return MemberPatch{Status: &status}
}

func RolePatch(role Role) MemberPatch {
	return MemberPatch{Role: &role}
}
