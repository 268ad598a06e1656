package redis

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	feedredis "github.com/lulubrolive/server/internal/repository/feed/redis"
	"github.com/lulubrolive/server/internal/repository/room"
)

type fixture struct {
	repo *repo
	feed *feedredis.Feed
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return fixture{
		repo: NewRepo(rc, slog.Default()),
		feed: feedredis.New(rc, slog.Default()),
	}
}

func testRoom(id string, createdAt time.Time) (domain.Room, domain.Member) {
	rm := domain.Room{
		ID:        id,
		Name:      "Friday stream",
		VideoURL:  "https://youtu.be/abc123XYZ9",
		HostID:    "host-user",
		IsActive:  true,
		CreatedAt: createdAt,
	}
	host := domain.Member{
		ID:       id + "-host",
		RoomID:   id,
		UserID:   "host-user",
		Username: "alice",
		Role:     domain.RoleHost,
		Status:   domain.StatusApproved,
		JoinedAt: createdAt,
	}
	return rm, host
}

func guest(roomId, id, userId string, joinedAt time.Time) domain.Member {
	return domain.Member{
		ID:       id,
		RoomID:   roomId,
		UserID:   userId,
		Username: "guest-" + id,
		Role:     domain.RoleGuest,
		Status:   domain.StatusWaiting,
		JoinedAt: joinedAt,
	}
}

func nextEvent(t *testing.T, sub feed.Subscription) feed.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return feed.Event{}
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	sub, err := f.feed.Subscribe(ctx, feed.KindMembers, "r1")
	require.NoError(t, err)
	defer sub.Close()

	rm, host := testRoom("r1", now)
	require.NoError(t, f.repo.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))

	got, err := f.repo.GetRoom(ctx, &room.GetRoomParams{RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, rm, got)

	members, err := f.repo.GetMembers(ctx, &room.GetMembersParams{RoomID: "r1"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, host, members[0])

	change, err := nextEvent(t, sub).MemberChange()
	require.NoError(t, err)
	assert.Equal(t, domain.OpInsert, change.Op)
	assert.Equal(t, host.ID, change.Member.ID)

	_, err = f.repo.GetRoom(ctx, &room.GetRoomParams{RoomID: "missing"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestListActiveRoomsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"old", "mid", "new"} {
		rm, host := testRoom(id, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, f.repo.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))
	}

	_, err := f.repo.SetRoomActive(ctx, &room.SetRoomActiveParams{RoomID: "mid", IsActive: false})
	require.NoError(t, err)

	rooms, err := f.repo.ListActiveRooms(ctx, &room.ListActiveRoomsParams{})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "new", rooms[0].ID)
	assert.Equal(t, "old", rooms[1].ID)

	rooms, err = f.repo.ListActiveRooms(ctx, &room.ListActiveRoomsParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "new", rooms[0].ID)

	closed, err := f.repo.GetRoom(ctx, &room.GetRoomParams{RoomID: "mid"})
	require.NoError(t, err)
	assert.False(t, closed.IsActive)
}

func TestSetRoomActivePublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rm, host := testRoom("r1", time.Now().UTC())
	require.NoError(t, f.repo.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))

	sub, err := f.feed.Subscribe(ctx, feed.KindRooms, "r1")
	require.NoError(t, err)
	defer sub.Close()

	_, err = f.repo.SetRoomActive(ctx, &room.SetRoomActiveParams{RoomID: "r1", IsActive: false})
	require.NoError(t, err)

	ev := nextEvent(t, sub)
	assert.Equal(t, domain.OpUpdate, ev.Op)
	got, err := ev.Room()
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestInsertMemberUniquePerParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rm, host := testRoom("r1", now)
	require.NoError(t, f.repo.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))

	b := guest("r1", "m-b", "user-b", now.Add(time.Second))
	require.NoError(t, f.repo.InsertMember(ctx, &room.InsertMemberParams{Member: b}))

	dup := guest("r1", "m-b2", "user-b", now.Add(2*time.Second))
	err := f.repo.InsertMember(ctx, &room.InsertMemberParams{Member: dup})
	assert.ErrorIs(t, err, room.ErrMemberAlreadyExists)

	byUser, err := f.repo.GetMemberByUser(ctx, &room.GetMemberByUserParams{RoomID: "r1", UserID: "user-b"})
	require.NoError(t, err)
	assert.Equal(t, "m-b", byUser.ID)

	_, err = f.repo.GetMemberByUser(ctx, &room.GetMemberByUserParams{RoomID: "r1", UserID: "nobody"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	members, err := f.repo.GetMembers(ctx, &room.GetMembersParams{RoomID: "r1"})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, host.ID, members[0].ID)
	assert.Equal(t, "m-b", members[1].ID)
}

func TestUpdateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rm, host := testRoom("r1", now)
	require.NoError(t, f.repo.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))
	b := guest("r1", "m-b", "user-b", now)
	require.NoError(t, f.repo.InsertMember(ctx, &room.InsertMemberParams{Member: b}))

	sub, err := f.feed.Subscribe(ctx, feed.KindMembers, "r1")
	require.NoError(t, err)
	defer sub.Close()

	updated, err := f.repo.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "m-b",
		Patch:    domain.StatusPatch(domain.StatusApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
	assert.Equal(t, domain.RoleGuest, updated.Role)

	change, err := nextEvent(t, sub).MemberChange()
	require.NoError(t, err)
	assert.Equal(t, domain.OpUpdate, change.Op)
	assert.Equal(t, domain.StatusApproved, change.Member.Status)

	updated, err = f.repo.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "m-b",
		Patch:    domain.RolePatch(domain.RoleCoHost),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCoHost, updated.Role)
	assert.Equal(t, domain.StatusApproved, updated.Status)

	_, err = f.repo.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "missing",
		Patch:    domain.StatusPatch(domain.StatusApproved),
	})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	_, err = f.repo.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "other-room",
		MemberID: "m-b",
		Patch:    domain.StatusPatch(domain.StatusWaiting),
	})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestDeleteMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rm, host := testRoom("r1", now)
	require.NoError(t, f.repo.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))
	b := guest("r1", "m-b", "user-b", now)
	require.NoError(t, f.repo.InsertMember(ctx, &room.InsertMemberParams{Member: b}))

	sub, err := f.feed.Subscribe(ctx, feed.KindMembers, "r1")
	require.NoError(t, err)
	defer sub.Close()

	deleted, err := f.repo.DeleteMember(ctx, &room.DeleteMemberParams{RoomID: "r1", MemberID: "m-b"})
	require.NoError(t, err)
	assert.Equal(t, "user-b", deleted.UserID)

	change, err := nextEvent(t, sub).MemberChange()
	require.NoError(t, err)
	assert.Equal(t, domain.OpDelete, change.Op)
	assert.Equal(t, "m-b", change.Member.ID)

	_, err = f.repo.GetMember(ctx, &room.GetMemberParams{RoomID: "r1", MemberID: "m-b"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	_, err = f.repo.DeleteMember(ctx, &room.DeleteMemberParams{RoomID: "r1", MemberID: "m-b"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	// a kicked participant may join again
	again := guest("r1", "m-b2", "user-b", now.Add(time.Second))
	assert.NoError(t, f.repo.InsertMember(ctx, &room.InsertMemberParams{Member: again}))
}

// beforeExec runs fn once, just before the next MULTI/EXEC block is sent.
type beforeExec struct {
	armed atomic.Bool
	fn    func()
}

func (h *beforeExec) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *beforeExec) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *beforeExec) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if len(cmds) > 0 && cmds[0].Name() == "multi" && h.armed.CompareAndSwap(true, false) {
			h.fn()
		}
		return next(ctx, cmds)
	}
}

func TestKickDuringApproveNeverPublishesUpdateAfterDelete(t *testing.T) {
	s := miniredis.RunT(t)
	approverClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	kickerClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		approverClient.Close()
		kickerClient.Close()
	})

	approver := NewRepo(approverClient, slog.Default())
	kicker := NewRepo(kickerClient, slog.Default())
	fd := feedredis.New(kickerClient, slog.Default())
	ctx := context.Background()
	now := time.Now().UTC()

	rm, host := testRoom("r1", now)
	require.NoError(t, kicker.CreateRoom(ctx, &room.CreateRoomParams{Room: rm, Host: host}))
	b := guest("r1", "m-b", "user-b", now.Add(time.Second))
	require.NoError(t, kicker.InsertMember(ctx, &room.InsertMemberParams{Member: b}))

	sub, err := fd.Subscribe(ctx, feed.KindMembers, "r1")
	require.NoError(t, err)
	defer sub.Close()

	hook := &beforeExec{fn: func() {
		_, err := kicker.DeleteMember(ctx, &room.DeleteMemberParams{RoomID: "r1", MemberID: "m-b"})
		assert.NoError(t, err)
	}}
	hook.armed.Store(true)
	approverClient.AddHook(hook)

	_, err = approver.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   "r1",
		MemberID: "m-b",
		Patch:    domain.StatusPatch(domain.StatusApproved),
	})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)

	change, err := nextEvent(t, sub).MemberChange()
	require.NoError(t, err)
	assert.Equal(t, domain.OpDelete, change.Op)
	assert.Equal(t, "m-b", change.Member.ID)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected %s event after delete", ev.Op)
	case <-time.After(200 * time.Millisecond):
	}

	exists := s.Exists("member:m-b")
	assert.False(t, exists)
}

func TestMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sub, err := f.feed.Subscribe(ctx, feed.KindMessages, "r1")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		msg := domain.Message{
			ID:        string(rune('a' + i)),
			RoomID:    "r1",
			UserID:    "user-b",
			Username:  "bob",
			Content:   "hi",
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, f.repo.InsertMessage(ctx, &room.InsertMessageParams{Message: msg}))
	}

	first, err := nextEvent(t, sub).Message()
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)

	latest, err := f.repo.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1", Limit: 3})
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, "c", latest[0].ID)
	assert.Equal(t, "e", latest[2].ID)

	all, err := f.repo.GetMessages(ctx, &room.GetMessagesParams{RoomID: "r1"})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := f.repo.GetMessages(ctx, &room.GetMessagesParams{RoomID: "empty", Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, none)
}
