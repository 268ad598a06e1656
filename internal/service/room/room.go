package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/room"
	"github.com/lulubrolive/server/pkg/ytvideo"
)

type CreateRoomParams struct {
	Name        string `json:"name"`
	VideoURL    string `json:"youtube_url"`
	Username    string `json:"username"`
	CreationKey string `json:"-"`
	UserId      string `json:"user_id"`
}

type CreateRoomResponse struct {
	Room       domain.Room   `json:"room"`
	Host       domain.Member `json:"host"`
	VideoTitle string        `json:"video_title,omitempty"`
}

// CreateRoom stores the room together with its creator as approved host.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	name := strings.TrimSpace(params.Name)
	username := strings.TrimSpace(params.Username)
	videoURL := strings.TrimSpace(params.VideoURL)

	if err := validateField("name", name, RoomNameRule...); err != nil {
		return CreateRoomResponse{}, err
	}

	if err := validateField("username", username, UsernameRule...); err != nil {
		return CreateRoomResponse{}, err
	}

	if err := validateField("youtube_url", videoURL, VideoURLRule...); err != nil {
		return CreateRoomResponse{}, err
	}

	if err := validateField("creation_key", params.CreationKey, s.creationKeyRule()); err != nil {
		return CreateRoomResponse{}, err
	}

	if err := validateField("user_id", params.UserId, ParticipantIdRule...); err != nil {
		return CreateRoomResponse{}, err
	}

	now := s.now()
	newRoom := domain.Room{
		ID:        newId(),
		Name:      name,
		VideoURL:  videoURL,
		HostID:    params.UserId,
		IsActive:  true,
		CreatedAt: now,
	}
	host := domain.Member{
		ID:       newId(),
		RoomID:   newRoom.ID,
		UserID:   params.UserId,
		Username: username,
		Role:     domain.RoleHost,
		Status:   domain.StatusApproved,
		JoinedAt: now,
	}

	if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
		Room: newRoom,
		Host: host,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to create room", "error", err)
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", storeErr(err))
	}

	return CreateRoomResponse{
		Room:       newRoom,
		Host:       host,
		VideoTitle: s.videoTitle(ctx, videoURL),
	}, nil
}

// videoTitle is best effort: lookup failures are logged and yield "".
func (s service) videoTitle(ctx context.Context, videoURL string) string {
	if s.videoFetcher == nil {
		return ""
	}

	videoId, ok := ytvideo.ExtractID(videoURL)
	if !ok {
		return ""
	}

	data, err := s.videoFetcher.Get(ctx, videoId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to fetch video data", "video_id", videoId, "error", err)
		return ""
	}

	return data.Title
}

type GetRoomParams struct {
	RoomId string `json:"room_id"`
}

func (s service) GetRoom(ctx context.Context, params *GetRoomParams) (domain.Room, error) {
	if err := validateField("room_id", params.RoomId, RoomIdRule...); err != nil {
		return domain.Room{}, err
	}

	rm, err := s.roomRepo.GetRoom(ctx, &room.GetRoomParams{RoomID: params.RoomId})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get room", "error", err)
		return domain.Room{}, fmt.Errorf("failed to get room: %w", storeErr(err))
	}

	return rm, nil
}

type GetRosterParams struct {
	RoomId string `json:"room_id"`
}

// GetRoster returns the room's members ordered by join time.
func (s service) GetRoster(ctx context.Context, params *GetRosterParams) ([]domain.Member, error) {
	members, err := s.roomRepo.GetMembers(ctx, &room.GetMembersParams{RoomID: params.RoomId})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get members", "error", err)
		return nil, fmt.Errorf("failed to get members: %w", storeErr(err))
	}

	return members, nil
}

type ListActiveRoomsParams struct {
	Limit int `json:"limit"`
}

// ListActiveRooms returns active rooms, newest first.
func (s service) ListActiveRooms(ctx context.Context, params *ListActiveRoomsParams) ([]domain.Room, error) {
	rooms, err := s.roomRepo.ListActiveRooms(ctx, &room.ListActiveRoomsParams{Limit: params.Limit})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to list active rooms", "error", err)
		return nil, fmt.Errorf("failed to list active rooms: %w", storeErr(err))
	}

	return rooms, nil
}

type JoinRoomParams struct {
	RoomId   string `json:"room_id"`
	Username string `json:"username"`
	UserId   string `json:"user_id"`
}

type JoinRoomResponse struct {
	Member        domain.Member `json:"member"`
	AlreadyJoined bool          `json:"already_joined"`
}

// JoinRoom inserts the participant as a waiting guest. A participant that is
// already a member gets its existing row back.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	username := strings.TrimSpace(params.Username)

	if err := validateField("room_id", params.RoomId, RoomIdRule...); err != nil {
		return JoinRoomResponse{}, err
	}

	if err := validateField("username", username, UsernameRule...); err != nil {
		return JoinRoomResponse{}, err
	}

	if err := validateField("user_id", params.UserId, ParticipantIdRule...); err != nil {
		return JoinRoomResponse{}, err
	}

	rm, err := s.roomRepo.GetRoom(ctx, &room.GetRoomParams{RoomID: params.RoomId})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get room", "error", err)
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", storeErr(err))
	}

	if !rm.IsActive {
		return JoinRoomResponse{}, fmt.Errorf("%w: room is closed", domain.ErrNotFound)
	}

	member := domain.Member{
		ID:       newId(),
		RoomID:   rm.ID,
		UserID:   params.UserId,
		Username: username,
		Role:     domain.RoleGuest,
		Status:   domain.StatusWaiting,
		JoinedAt: s.now(),
	}

	err = s.roomRepo.InsertMember(ctx, &room.InsertMemberParams{Member: member})
	if err == nil {
		return JoinRoomResponse{Member: member}, nil
	}

	if !errors.Is(err, room.ErrMemberAlreadyExists) {
		s.logger.InfoContext(ctx, "failed to insert member", "error", err)
		return JoinRoomResponse{}, fmt.Errorf("failed to insert member: %w", storeErr(err))
	}

	existing, err := s.roomRepo.GetMemberByUser(ctx, &room.GetMemberByUserParams{
		RoomID: rm.ID,
		UserID: params.UserId,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get existing member", "error", err)
		return JoinRoomResponse{}, fmt.Errorf("failed to get existing member: %w", storeErr(err))
	}

	return JoinRoomResponse{
		Member:        existing,
		AlreadyJoined: true,
	}, nil
}

type CloseRoomParams struct {
	RoomId      string `json:"room_id"`
	ActorUserId string `json:"actor_user_id"`
}

// CloseRoom clears the activity flag. Only the host may close the room.
func (s service) CloseRoom(ctx context.Context, params *CloseRoomParams) (domain.Room, error) {
	if err := validateField("room_id", params.RoomId, RoomIdRule...); err != nil {
		return domain.Room{}, err
	}

	actor, err := s.getActor(ctx, params.RoomId, params.ActorUserId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get actor", "error", err)
		return domain.Room{}, fmt.Errorf("failed to get actor: %w", err)
	}

	if actor == nil || actor.Role != domain.RoleHost {
		return domain.Room{}, fmt.Errorf("%w: closing the room requires host", domain.ErrUnauthorized)
	}

	rm, err := s.roomRepo.SetRoomActive(ctx, &room.SetRoomActiveParams{
		RoomID:   params.RoomId,
		IsActive: false,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to close room", "error", err)
		return domain.Room{}, fmt.Errorf("failed to close room: %w", storeErr(err))
	}

	return rm, nil
}
