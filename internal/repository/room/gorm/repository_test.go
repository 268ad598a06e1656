package gorm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	"github.com/lulubrolive/server/internal/repository/room"
	"github.com/lulubrolive/server/pkg/database"
)

type recorder struct {
	mu        sync.Mutex
	events    []feed.Event
	err       error
	onPublish func(feed.Event)
}

func (r *recorder) Publish(_ context.Context, ev feed.Event) error {
	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return r.err
	}
	r.events = append(r.events, ev)
	hook := r.onPublish
	r.mu.Unlock()

	if hook != nil {
		hook(ev)
	}
	return nil
}

func (r *recorder) ops() []domain.ChangeOp {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]domain.ChangeOp, 0, len(r.events))
	for _, ev := range r.events {
		ops = append(ops, ev.Op)
	}
	return ops
}

func (r *recorder) last() feed.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestRepo(t *testing.T) (*repo, *recorder) {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	rec := &recorder{}
	r := NewRepo(db, rec, slog.Default())
	require.NoError(t, r.Migrate(context.Background()))

	return r, rec
}

func seedRoom(t *testing.T, r *repo, id string, createdAt time.Time) domain.Member {
	t.Helper()
	host := domain.Member{
		ID:       id + "-host",
		RoomID:   id,
		UserID:   "host-user",
		Username: "alice",
		Role:     domain.RoleHost,
		Status:   domain.StatusApproved,
		JoinedAt: createdAt,
	}
	err := r.CreateRoom(context.Background(), &room.CreateRoomParams{
		Room: domain.Room{
			ID:        id,
			Name:      "Room " + id,
			VideoURL:  "https://youtu.be/abc123XYZ9",
			HostID:    "host-user",
			IsActive:  true,
			CreatedAt: createdAt,
		},
		Host: host,
	})
	require.NoError(t, err)
	return host
}

func TestCreateRoomAtomic(t *testing.T) {
	r, rec := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	host := seedRoom(t, r, "r1", now)
	require.Len(t, rec.events, 2)
	assert.Equal(t, feed.KindRooms, rec.events[0].Kind)
	assert.Equal(t, feed.KindMembers, rec.events[1].Kind)

	// the duplicate room id fails and leaves no second host row behind
	err := r.CreateRoom(ctx, &room.CreateRoomParams{
		Room: domain.Room{ID: "r1", Name: "again", VideoURL: "x", HostID: "other", IsActive: true, CreatedAt: now},
		Host: domain.Member{ID: "other-host", RoomID: "r1", UserID: "other", Username: "o", Role: domain.RoleHost, Status: domain.StatusApproved, JoinedAt: now},
	})
	require.Error(t, err)

	members, err := r.GetMembers(ctx, &room.GetMembersParams{RoomID: "r1"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, host.ID, members[0].ID)
	assert.Len(t, rec.events, 2)
}

func TestGetRoom(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	seedRoom(t, r, "r1", time.Now().UTC())

	got, err := r.GetRoom(ctx, &room.GetRoomParams{RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "Room r1", got.Name)
	assert.True(t, got.IsActive)

	_, err = r.GetRoom(ctx, &room.GetRoomParams{RoomID: "nope"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestListActiveRooms(t *testing.T) {
	r, rec := newTestRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	seedRoom(t, r, "old", base)
	seedRoom(t, r, "mid", base.Add(time.Minute))
	seedRoom(t, r, "new", base.Add(2*time.Minute))

	closed, err := r.SetRoomActive(ctx, &room.SetRoomActiveParams{RoomID: "mid", IsActive: false})
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	ev := rec.last()
	assert.Equal(t, feed.KindRooms, ev.Kind)
	assert.Equal(t, domain.OpUpdate, ev.Op)

	rooms, err := r.ListActiveRooms(ctx, &room.ListActiveRoomsParams{})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "new", rooms[0].ID)
	assert.Equal(t, "old", rooms[1].ID)

	_, err = r.SetRoomActive(ctx, &room.SetRoomActiveParams{RoomID: "nope"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestMemberLifecycle(t *testing.T) {
	r, rec := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedRoom(t, r, "r1", now)

	b := domain.Member{
		ID:       "m-b",
		RoomID:   "r1",
		UserID:   "user-b",
		Username: "bob",
		Role:     domain.RoleGuest,
		Status:   domain.StatusWaiting,
		JoinedAt: now.Add(time.Second),
	}
	require.NoError(t, r.InsertMember(ctx, &room.InsertMemberParams{Member: b}))

	dup := b
	dup.ID = "m-b2"
	err := r.InsertMember(ctx, &room.InsertMemberParams{Member: dup})
	assert.ErrorIs(t, err, room.ErrMemberAlreadyExists)

	got, err := r.GetMemberByUser(ctx, &room.GetMemberByUserParams{RoomID: "r1", UserID: "user-b"})
	require.NoError(t, err)
	assert.Equal(t, "m-b", got.ID)
	assert.Equal(t, domain.StatusWaiting, got.Status)

	updated, err := r.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "m-b",
		Patch:    domain.StatusPatch(domain.StatusApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)

	change, err := rec.last().MemberChange()
	require.NoError(t, err)
	assert.Equal(t, domain.OpUpdate, change.Op)
	assert.Equal(t, domain.StatusApproved, change.Member.Status)

	_, err = r.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "missing",
		Patch:    domain.RolePatch(domain.RoleCoHost),
	})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	members, err := r.GetMembers(ctx, &room.GetMembersParams{RoomID: "r1"})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "r1-host", members[0].ID)
	assert.Equal(t, "m-b", members[1].ID)

	deleted, err := r.DeleteMember(ctx, &room.DeleteMemberParams{RoomID: "r1", MemberID: "m-b"})
	require.NoError(t, err)
	assert.Equal(t, "user-b", deleted.UserID)

	change, err = rec.last().MemberChange()
	require.NoError(t, err)
	assert.Equal(t, domain.OpDelete, change.Op)
	assert.Equal(t, "m-b", change.Member.ID)

	_, err = r.GetMember(ctx, &room.GetMemberParams{RoomID: "r1", MemberID: "m-b"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	_, err = r.DeleteMember(ctx, &room.DeleteMemberParams{RoomID: "r1", MemberID: "m-b"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestKickDuringApprovePublishesInCommitOrder(t *testing.T) {
	r, rec := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedRoom(t, r, "r1", now)

	b := domain.Member{ID: "m-b", RoomID: "r1", UserID: "user-b", Username: "bob", Role: domain.RoleGuest, Status: domain.StatusWaiting, JoinedAt: now}
	require.NoError(t, r.InsertMember(ctx, &room.InsertMemberParams{Member: b}))

	rec.mu.Lock()
	rec.events = nil
	kicked := make(chan error, 1)
	var once sync.Once
	rec.onPublish = func(ev feed.Event) {
		if ev.Op != domain.OpUpdate {
			return
		}
		once.Do(func() {
			go func() {
				_, err := r.DeleteMember(ctx, &room.DeleteMemberParams{RoomID: "r1", MemberID: "m-b"})
				kicked <- err
			}()
		})
	}
	rec.mu.Unlock()

	_, err := r.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "m-b",
		Patch:    domain.StatusPatch(domain.StatusApproved),
	})
	require.NoError(t, err)

	select {
	case err := <-kicked:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("kick did not finish")
	}

	assert.Equal(t, []domain.ChangeOp{domain.OpUpdate, domain.OpDelete}, rec.ops())

	_, err = r.GetMember(ctx, &room.GetMemberParams{RoomID: "r1", MemberID: "m-b"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestPublishFailureKeepsWrite(t *testing.T) {
	r, rec := newTestRepo(t)
	ctx := context.Background()
	seedRoom(t, r, "r1", time.Now().UTC())

	rec.err = errors.New("feed down")
	msg := domain.Message{ID: "msg-1", RoomID: "r1", UserID: "host-user", Username: "alice", Content: "hi", CreatedAt: time.Now().UTC()}
	require.NoError(t, r.InsertMessage(ctx, &room.InsertMessageParams{Message: msg}))

	messages, err := r.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1", Limit: 50})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Content)
}

func TestGetMessagesLatestAscending(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"a", "b", "c", "d"} {
		msg := domain.Message{
			ID:        id,
			RoomID:    "r1",
			UserID:    "u",
			Username:  "bob",
			Content:   "msg " + id,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, r.InsertMessage(ctx, &room.InsertMessageParams{Message: msg}))
	}

	messages, err := r.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "c", messages[0].ID)
	assert.Equal(t, "d", messages[1].ID)
}
