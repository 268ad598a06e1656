// Package projector maintains one participant's read-mirror of a room's
// membership: the roster, the participant's own member row, and the
// authorization predicates derived from it.
//
// A Projector is owned by a single room view and is not safe for concurrent use.
package projector

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/lulubrolive/server/internal/domain"
)

type Outcome uint8

const (
	// OutcomeIgnored means the change did not touch the roster.
	OutcomeIgnored Outcome = iota
	// OutcomeRosterChanged means the roster changed but the participant's own row did not.
	OutcomeRosterChanged
	// OutcomeSelfChanged means the participant's own row was inserted or updated.
	OutcomeSelfChanged
	// OutcomeKicked means the participant's own row was deleted. It is terminal.
	OutcomeKicked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRosterChanged:
		return "roster_changed"
	case OutcomeSelfChanged:
		return "self_changed"
	case OutcomeKicked:
		return "kicked"
	default:
		return fmt.Sprintf("Outcome(%d)", o)
	}
}

type Projector struct {
	participantID string
	room          domain.Room
	roster        []domain.Member
	self          *domain.Member
	kicked        bool
}

func New(participantID string) *Projector {
	return &Projector{participantID: participantID}
}

// Load replaces the projected state with a snapshot. The roster is expected in
// ascending join order. Duplicate ids keep the last occurrence in place of the first.
func (p *Projector) Load(room domain.Room, roster []domain.Member) {
	p.room = room
	p.roster = make([]domain.Member, 0, len(roster))
	p.self = nil
	p.kicked = false

	for _, m := range roster {
		p.upsert(m)
	}
	p.refreshSelf()
}

// Apply folds one change into the projection. Changes for other rooms are ignored,
// as is everything after the participant has been kicked.
func (p *Projector) Apply(change domain.MemberChange) Outcome {
	if p.kicked {
		return OutcomeIgnored
	}

	m := change.Member
	if p.room.ID != "" && m.RoomID != p.room.ID {
		return OutcomeIgnored
	}

	switch change.Op {
	case domain.OpInsert:
		p.upsert(m)
		return p.changed(m)

	case domain.OpUpdate:
		// an unknown id was already deleted or never seen; appending it would resurrect it
		i := p.indexOf(m.ID)
		if i < 0 {
			return OutcomeIgnored
		}
		p.roster[i] = m
		return p.changed(m)

	case domain.OpDelete:
		i := p.indexOf(m.ID)
		if i >= 0 {
			p.roster = slices.Delete(p.roster, i, i+1)
		}
		if (p.self != nil && p.self.ID == m.ID) || p.isSelf(m) {
			p.self = nil
			p.kicked = true
			return OutcomeKicked
		}
		if i < 0 {
			return OutcomeIgnored
		}
		return OutcomeRosterChanged

	default:
		return OutcomeIgnored
	}
}

func (p *Projector) changed(m domain.Member) Outcome {
	if p.isSelf(m) {
		self := m
		p.self = &self
		return OutcomeSelfChanged
	}
	return OutcomeRosterChanged
}

// upsert replaces the entry with the same id in place, or appends a new one.
func (p *Projector) upsert(m domain.Member) {
	if i := p.indexOf(m.ID); i >= 0 {
		p.roster[i] = m
		return
	}

	p.roster = append(p.roster, m)
}

func (p *Projector) indexOf(memberID string) int {
	return slices.IndexFunc(p.roster, func(m domain.Member) bool {
		return m.ID == memberID
	})
}

func (p *Projector) isSelf(m domain.Member) bool {
	return p.participantID != "" && m.UserID == p.participantID
}

func (p *Projector) refreshSelf() {
	i := slices.IndexFunc(p.roster, p.isSelf)
	if i < 0 {
		p.self = nil
		return
	}

	self := p.roster[i]
	p.self = &self
}

func (p *Projector) ParticipantID() string {
	return p.participantID
}

func (p *Projector) Room() domain.Room {
	return p.room
}

// Roster returns a copy of the current roster.
func (p *Projector) Roster() []domain.Member {
	return slices.Clone(p.roster)
}

func (p *Projector) Member(memberID string) (domain.Member, bool) {
	i := p.indexOf(memberID)
	if i < 0 {
		return domain.Member{}, false
	}

	return p.roster[i], true
}

func (p *Projector) Self() (domain.Member, bool) {
	if p.self == nil {
		return domain.Member{}, false
	}

	return *p.self, true
}

// Joined is false in the "unjoined" state: the room exists but the participant has no row.
func (p *Projector) Joined() bool {
	return p.self != nil
}

func (p *Projector) Kicked() bool {
	return p.kicked
}

func (p *Projector) IsApprovedChatter() bool {
	return p.self != nil && p.self.Status == domain.StatusApproved
}

func (p *Projector) IsHostOrCoHost() bool {
	return p.self != nil && p.self.Role.CanManage()
}

// Authorize checks a management action against the projected state.
func (p *Projector) Authorize(action domain.Action, targetMemberID string) error {
	target, ok := p.Member(targetMemberID)
	if !ok {
		return fmt.Errorf("member %s: %w", targetMemberID, domain.ErrNotFound)
	}

	var actor *domain.Member
	if p.self != nil {
		self := *p.self
		actor = &self
	}

	return domain.Authorize(actor, action, target)
}

type Snapshot struct {
	Room              domain.Room     `json:"room"`
	Roster            []domain.Member `json:"roster"`
	Self              *domain.Member  `json:"self"`
	Joined            bool            `json:"joined"`
	IsApprovedChatter bool            `json:"is_approved_chatter"`
	IsHostOrCoHost    bool            `json:"is_host_or_co_host"`
	ApprovedCount     int             `json:"approved_count"`
	WaitingCount      int             `json:"waiting_count"`
}

func (p *Projector) Snapshot() Snapshot {
	s := Snapshot{
		Room:              p.room,
		Roster:            p.Roster(),
		Joined:            p.Joined(),
		IsApprovedChatter: p.IsApprovedChatter(),
		IsHostOrCoHost:    p.IsHostOrCoHost(),
	}

	if self, ok := p.Self(); ok {
		s.Self = &self
	}

	for _, m := range p.roster {
		switch m.Status {
		case domain.StatusApproved:
			s.ApprovedCount++
		case domain.StatusWaiting:
			s.WaitingCount++
		case domain.StatusKicked:
		}
	}

	return s
}
