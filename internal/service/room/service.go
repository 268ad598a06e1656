package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/room"
	"github.com/lulubrolive/server/pkg/ytvideo"
)

const (
	DefaultCreationKey   = "lulubrolivekey"
	DefaultMessagesLimit = 50
	MaxMessageLength     = 1000
)

type iRoomRepo interface {
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoom(context.Context, *room.GetRoomParams) (domain.Room, error)
	ListActiveRooms(context.Context, *room.ListActiveRoomsParams) ([]domain.Room, error)
	SetRoomActive(context.Context, *room.SetRoomActiveParams) (domain.Room, error)
	// member
	InsertMember(context.Context, *room.InsertMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (domain.Member, error)
	GetMemberByUser(context.Context, *room.GetMemberByUserParams) (domain.Member, error)
	GetMembers(context.Context, *room.GetMembersParams) ([]domain.Member, error)
	UpdateMember(context.Context, *room.UpdateMemberParams) (domain.Member, error)
	DeleteMember(context.Context, *room.DeleteMemberParams) (domain.Member, error)
	// message
	InsertMessage(context.Context, *room.InsertMessageParams) error
	GetMessages(context.Context, *room.GetMessagesParams) ([]domain.Message, error)
}

type iVideoFetcher interface {
	Get(ctx context.Context, videoId string) (*ytvideo.VideoData, error)
}

type Config struct {
	Secret        string
	CreationKey   string
	MessagesLimit int
}

type service struct {
	roomRepo      iRoomRepo
	videoFetcher  iVideoFetcher
	logger        *slog.Logger
	secret        []byte
	creationKey   string
	messagesLimit int
	now           func() time.Time
}

// NewService builds the room service. videoFetcher may be nil, in which case
// video metadata is not looked up.
func NewService(roomRepo iRoomRepo, videoFetcher iVideoFetcher, logger *slog.Logger, cfg *Config) *service {
	creationKey := cfg.CreationKey
	if creationKey == "" {
		creationKey = DefaultCreationKey
	}

	messagesLimit := cfg.MessagesLimit
	if messagesLimit <= 0 {
		messagesLimit = DefaultMessagesLimit
	}

	return &service{
		roomRepo:      roomRepo,
		videoFetcher:  videoFetcher,
		logger:        logger,
		secret:        []byte(cfg.Secret),
		creationKey:   creationKey,
		messagesLimit: messagesLimit,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// newId returns a UUIDv7, so ids sort by creation time.
func newId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// storeErr maps store failures onto the domain error taxonomy.
func storeErr(err error) error {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrMemberNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, room.ErrMemberAlreadyExists):
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	default:
		return domain.NewStoreError(err)
	}
}

// getActor returns nil when the participant has no row in the room.
func (s service) getActor(ctx context.Context, roomId, userId string) (*domain.Member, error) {
	actor, err := s.roomRepo.GetMemberByUser(ctx, &room.GetMemberByUserParams{
		RoomID: roomId,
		UserID: userId,
	})
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}

	return &actor, nil
}
