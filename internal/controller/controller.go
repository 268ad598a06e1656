package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slices"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/feed"
	"github.com/lulubrolive/server/internal/service/room"
	"github.com/lulubrolive/server/pkg/validator"
	"github.com/lulubrolive/server/pkg/wsrouter"
)

type iRoomService interface {
	IssueSession(context.Context) (room.IssueSessionResponse, error)
	ParseSession(token string) (string, error)
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoom(context.Context, *room.GetRoomParams) (domain.Room, error)
	GetRoster(context.Context, *room.GetRosterParams) ([]domain.Member, error)
	ListActiveRooms(context.Context, *room.ListActiveRoomsParams) ([]domain.Room, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	CloseRoom(context.Context, *room.CloseRoomParams) (domain.Room, error)
	ApproveMember(context.Context, *room.MemberActionParams) (domain.Member, error)
	DemoteMember(context.Context, *room.MemberActionParams) (domain.Member, error)
	KickMember(context.Context, *room.MemberActionParams) (domain.Member, error)
	SetCoHost(context.Context, *room.SetCoHostParams) (domain.Member, error)
	SendMessage(context.Context, *room.SendMessageParams) (domain.Message, error)
	ListMessages(context.Context, *room.ListMessagesParams) ([]domain.Message, error)
}

type iSubscriber interface {
	Subscribe(ctx context.Context, kind feed.Kind, roomID string) (feed.Subscription, error)
}

type Config struct {
	// AllowedOrigins restricts CORS and websocket origins. Empty or "*" allows all.
	AllowedOrigins []string
}

type controller struct {
	roomService    iRoomService
	subscriber     iSubscriber
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
	clients        *clientRegistry
	wsmux          *wsrouter.WSRouter
	allowedOrigins []string
}

func NewController(roomService iRoomService, subscriber iSubscriber, logger *slog.Logger, cfg *Config) *controller {
	c := &controller{
		roomService:    roomService,
		subscriber:     subscriber,
		validate:       validator.NewValidator(),
		logger:         logger,
		clients:        newClientRegistry(logger),
		allowedOrigins: cfg.AllowedOrigins,
	}

	c.upgrader = websocket.Upgrader{
		CheckOrigin: c.checkOrigin,
	}
	c.wsmux = c.getWSRouter()

	return c
}

func (c controller) allowAllOrigins() bool {
	return len(c.allowedOrigins) == 0 || slices.Contains(c.allowedOrigins, "*")
}

func (c controller) checkOrigin(r *http.Request) bool {
	if c.allowAllOrigins() {
		return true
	}

	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(c.allowedOrigins, origin)
}
