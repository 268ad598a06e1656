package projector

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulubrolive/server/internal/domain"
)

const roomID = "room-1"

var baseTime = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func member(id, userID string, role domain.Role, status domain.Status) domain.Member {
	return domain.Member{
		ID:       id,
		RoomID:   roomID,
		UserID:   userID,
		Username: "name-" + userID,
		Role:     role,
		Status:   status,
		JoinedAt: baseTime,
	}
}

func change(op domain.ChangeOp, m domain.Member) domain.MemberChange {
	return domain.MemberChange{Op: op, Member: m}
}

func loaded(participantID string, roster ...domain.Member) *Projector {
	p := New(participantID)
	p.Load(domain.Room{ID: roomID, Name: "Movie Night", IsActive: true}, roster)
	return p
}

func TestLoadFindsSelf(t *testing.T) {
	host := member("m-a", "a", domain.RoleHost, domain.StatusApproved)
	guest := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)

	p := loaded("b", host, guest)

	self, ok := p.Self()
	require.True(t, ok)
	assert.Equal(t, "m-b", self.ID)
	assert.True(t, p.Joined())
	assert.False(t, p.IsApprovedChatter())
	assert.False(t, p.IsHostOrCoHost())
	assert.Len(t, p.Roster(), 2)
}

func TestLoadUnjoined(t *testing.T) {
	p := loaded("stranger", member("m-a", "a", domain.RoleHost, domain.StatusApproved))

	_, ok := p.Self()
	assert.False(t, ok)
	assert.False(t, p.Joined())
	assert.False(t, p.Kicked())
	assert.False(t, p.IsApprovedChatter())
	assert.False(t, p.IsHostOrCoHost())

	err := p.Authorize(domain.ActionKick, "m-a")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestInsertAppendsAndDedupes(t *testing.T) {
	p := loaded("a", member("m-a", "a", domain.RoleHost, domain.StatusApproved))

	guest := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)
	assert.Equal(t, OutcomeRosterChanged, p.Apply(change(domain.OpInsert, guest)))
	assert.Equal(t, OutcomeRosterChanged, p.Apply(change(domain.OpInsert, guest)))

	roster := p.Roster()
	require.Len(t, roster, 2)
	assert.Equal(t, "m-a", roster[0].ID)
	assert.Equal(t, "m-b", roster[1].ID)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	a := member("m-a", "a", domain.RoleHost, domain.StatusApproved)
	b := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)
	c := member("m-c", "c", domain.RoleGuest, domain.StatusWaiting)
	p := loaded("a", a, b, c)

	b.Status = domain.StatusApproved
	assert.Equal(t, OutcomeRosterChanged, p.Apply(change(domain.OpUpdate, b)))

	roster := p.Roster()
	require.Len(t, roster, 3)
	assert.Equal(t, "m-b", roster[1].ID)
	assert.Equal(t, domain.StatusApproved, roster[1].Status)
}

func TestUpdateAfterDeleteStaysAbsent(t *testing.T) {
	p := loaded("a", member("m-a", "a", domain.RoleHost, domain.StatusApproved))
	b := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)

	p.Apply(change(domain.OpInsert, b))
	assert.Equal(t, OutcomeRosterChanged, p.Apply(change(domain.OpDelete, b)))

	b.Status = domain.StatusApproved
	assert.Equal(t, OutcomeIgnored, p.Apply(change(domain.OpUpdate, b)))

	_, ok := p.Member("m-b")
	assert.False(t, ok)
	assert.Len(t, p.Roster(), 1)
	assert.Equal(t, 1, p.Snapshot().ApprovedCount)
	assert.ErrorIs(t, p.Authorize(domain.ActionKick, "m-b"), domain.ErrNotFound)
}

func TestUpdateIsIdempotent(t *testing.T) {
	a := member("m-a", "a", domain.RoleHost, domain.StatusApproved)
	b := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)
	p := loaded("a", a, b)

	b.Role = domain.RoleCoHost
	p.Apply(change(domain.OpUpdate, b))
	once := p.Roster()

	p.Apply(change(domain.OpUpdate, b))
	assert.Equal(t, once, p.Roster())
}

func TestSelfApprovalFlipsChatter(t *testing.T) {
	b := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)
	p := loaded("b", member("m-a", "a", domain.RoleHost, domain.StatusApproved), b)
	require.False(t, p.IsApprovedChatter())

	b.Status = domain.StatusApproved
	assert.Equal(t, OutcomeSelfChanged, p.Apply(change(domain.OpUpdate, b)))
	assert.True(t, p.IsApprovedChatter())

	b.Status = domain.StatusWaiting
	assert.Equal(t, OutcomeSelfChanged, p.Apply(change(domain.OpUpdate, b)))
	assert.False(t, p.IsApprovedChatter())
}

func TestSelfRoleChangeFlipsManagement(t *testing.T) {
	b := member("m-b", "b", domain.RoleGuest, domain.StatusApproved)
	p := loaded("b", member("m-a", "a", domain.RoleHost, domain.StatusApproved), b)
	require.False(t, p.IsHostOrCoHost())

	b.Role = domain.RoleCoHost
	p.Apply(change(domain.OpUpdate, b))
	assert.True(t, p.IsHostOrCoHost())

	b.Role = domain.RoleGuest
	p.Apply(change(domain.OpUpdate, b))
	assert.False(t, p.IsHostOrCoHost())
}

func TestSelfJoinAfterLoad(t *testing.T) {
	p := loaded("b", member("m-a", "a", domain.RoleHost, domain.StatusApproved))
	require.False(t, p.Joined())

	b := member("m-b", "b", domain.RoleGuest, domain.StatusWaiting)
	assert.Equal(t, OutcomeSelfChanged, p.Apply(change(domain.OpInsert, b)))
	assert.True(t, p.Joined())
}

func TestDeleteOther(t *testing.T) {
	b := member("m-b", "b", domain.RoleGuest, domain.StatusApproved)
	p := loaded("a", member("m-a", "a", domain.RoleHost, domain.StatusApproved), b)

	assert.Equal(t, OutcomeRosterChanged, p.Apply(change(domain.OpDelete, b)))
	assert.Len(t, p.Roster(), 1)

	assert.Equal(t, OutcomeIgnored, p.Apply(change(domain.OpDelete, b)))
	assert.Len(t, p.Roster(), 1)
}

func TestDeleteSelfIsTerminal(t *testing.T) {
	b := member("m-b", "b", domain.RoleGuest, domain.StatusApproved)
	p := loaded("b", member("m-a", "a", domain.RoleHost, domain.StatusApproved), b)

	assert.Equal(t, OutcomeKicked, p.Apply(change(domain.OpDelete, b)))
	assert.True(t, p.Kicked())
	assert.False(t, p.Joined())
	assert.False(t, p.IsApprovedChatter())

	c := member("m-c", "c", domain.RoleGuest, domain.StatusWaiting)
	assert.Equal(t, OutcomeIgnored, p.Apply(change(domain.OpInsert, c)))
	assert.Len(t, p.Roster(), 1)
}

func TestOtherRoomIgnored(t *testing.T) {
	p := loaded("a", member("m-a", "a", domain.RoleHost, domain.StatusApproved))

	stray := member("m-x", "x", domain.RoleGuest, domain.StatusWaiting)
	stray.RoomID = "room-2"
	assert.Equal(t, OutcomeIgnored, p.Apply(change(domain.OpInsert, stray)))
	assert.Len(t, p.Roster(), 1)
}

func TestAuthorizeRules(t *testing.T) {
	a := member("m-a", "a", domain.RoleHost, domain.StatusApproved)
	c := member("m-c", "c", domain.RoleCoHost, domain.StatusApproved)
	g := member("m-g", "g", domain.RoleGuest, domain.StatusWaiting)

	host := loaded("a", a, c, g)
	assert.NoError(t, host.Authorize(domain.ActionApprove, "m-g"))
	assert.NoError(t, host.Authorize(domain.ActionDemoteToWaiting, "m-c"))
	assert.NoError(t, host.Authorize(domain.ActionGrantCoHost, "m-g"))
	assert.ErrorIs(t, host.Authorize(domain.ActionKick, "m-a"), domain.ErrUnauthorized)
	assert.ErrorIs(t, host.Authorize(domain.ActionDemoteToWaiting, "m-a"), domain.ErrUnauthorized)
	assert.ErrorIs(t, host.Authorize(domain.ActionGrantCoHost, "m-a"), domain.ErrUnauthorized)
	assert.ErrorIs(t, host.Authorize(domain.ActionKick, "missing"), domain.ErrNotFound)

	coHost := loaded("c", a, c, g)
	assert.True(t, coHost.IsHostOrCoHost())
	assert.NoError(t, coHost.Authorize(domain.ActionApprove, "m-g"))
	assert.NoError(t, coHost.Authorize(domain.ActionKick, "m-g"))
	assert.ErrorIs(t, coHost.Authorize(domain.ActionDemoteToWaiting, "m-g"), domain.ErrUnauthorized)
	assert.ErrorIs(t, coHost.Authorize(domain.ActionGrantCoHost, "m-g"), domain.ErrUnauthorized)
	assert.ErrorIs(t, coHost.Authorize(domain.ActionRevokeCoHost, "m-g"), domain.ErrUnauthorized)

	guest := loaded("g", a, c, g)
	assert.ErrorIs(t, guest.Authorize(domain.ActionApprove, "m-c"), domain.ErrUnauthorized)
}

func TestSnapshotCounts(t *testing.T) {
	p := loaded("a",
		member("m-a", "a", domain.RoleHost, domain.StatusApproved),
		member("m-b", "b", domain.RoleGuest, domain.StatusWaiting),
		member("m-c", "c", domain.RoleGuest, domain.StatusWaiting),
	)

	s := p.Snapshot()
	assert.Equal(t, 1, s.ApprovedCount)
	assert.Equal(t, 2, s.WaitingCount)
	require.NotNil(t, s.Self)
	assert.Equal(t, "m-a", s.Self.ID)
	assert.True(t, s.IsHostOrCoHost)
	assert.True(t, s.IsApprovedChatter)
}

// Any sequence of changes leaves exactly one entry per live id, holding the
// last record seen for it, with deleted ids absent even when updated later.
func TestRandomSequencesConverge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := []domain.Status{domain.StatusWaiting, domain.StatusApproved}
	roles := []domain.Role{domain.RoleGuest, domain.RoleCoHost}

	for run := 0; run < 200; run++ {
		p := loaded("observer")
		expected := make(map[string]domain.Member)

		for step := 0; step < 50; step++ {
			id := fmt.Sprintf("m-%d", rng.Intn(8))
			m := member(id, "u"+id, roles[rng.Intn(len(roles))], statuses[rng.Intn(len(statuses))])

			var op domain.ChangeOp
			switch rng.Intn(3) {
			case 0:
				op = domain.OpInsert
			case 1:
				op = domain.OpUpdate
			default:
				op = domain.OpDelete
			}

			ch := change(op, m)
			p.Apply(ch)
			if rng.Intn(4) == 0 {
				p.Apply(ch)
			}

			switch op {
			case domain.OpDelete:
				delete(expected, id)
			case domain.OpUpdate:
				if _, ok := expected[id]; ok {
					expected[id] = m
				}
			default:
				expected[id] = m
			}
		}

		roster := p.Roster()
		seen := make(map[string]bool, len(roster))
		for _, m := range roster {
			require.False(t, seen[m.ID], "duplicate id %s", m.ID)
			seen[m.ID] = true
			assert.Equal(t, expected[m.ID], m)
		}
		assert.Len(t, roster, len(expected))
	}
}
