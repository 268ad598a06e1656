package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/service/room"
	"github.com/lulubrolive/server/pkg/rest"
)

// issueSession always mints a new participant identity; a request body is ignored.
func (c controller) issueSession(w http.ResponseWriter, r *http.Request) {
	session, err := c.roomService.IssueSession(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": session})
}

type listRoomsQuery struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	var query listRoomsQuery
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": errorBody{Code: codeValidation, Message: "limit must be an integer"}})
			return
		}
		query.Limit = limit
	}

	if validationErrors, ok := c.validate.Validate(query); !ok {
		c.writeValidationErrors(w, r, validationErrors)
		return
	}

	rooms, err := c.roomService.ListActiveRooms(r.Context(), &room.ListActiveRoomsParams{Limit: query.Limit})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if rooms == nil {
		rooms = []domain.Room{}
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}

type createRoomRequest struct {
	Name        string `json:"name" validate:"max=1024"`
	VideoURL    string `json:"youtube_url" validate:"max=2048"`
	Username    string `json:"username" validate:"max=1024"`
	CreationKey string `json:"creation_key" validate:"max=1024"`
}

type createRoomResponse struct {
	room.CreateRoomResponse
	Session *room.IssueSessionResponse `json:"session,omitempty"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !c.readJSON(w, r, &req) {
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeValidationErrors(w, r, validationErrors)
		return
	}

	participantId, session, err := c.getOrIssueSession(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	createRoomResp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Name:        req.Name,
		VideoURL:    req.VideoURL,
		Username:    req.Username,
		CreationKey: req.CreationKey,
		UserId:      participantId,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		CreateRoomResponse: createRoomResp,
		Session:            session,
	}})
}

type getRoomResponse struct {
	Room   domain.Room     `json:"room"`
	Roster []domain.Member `json:"roster"`
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	rm, err := c.roomService.GetRoom(r.Context(), &room.GetRoomParams{RoomId: roomId})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	roster, err := c.roomService.GetRoster(r.Context(), &room.GetRosterParams{RoomId: roomId})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if roster == nil {
		roster = []domain.Member{}
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": getRoomResponse{
		Room:   rm,
		Roster: roster,
	}})
}

type joinRoomRequest struct {
	Username string `json:"username" validate:"max=1024"`
}

type joinRoomResponse struct {
	room.JoinRoomResponse
	Session *room.IssueSessionResponse `json:"session,omitempty"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	var req joinRoomRequest
	if !c.readJSON(w, r, &req) {
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.writeValidationErrors(w, r, validationErrors)
		return
	}

	participantId, session, err := c.getOrIssueSession(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	joinRoomResp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomId:   roomId,
		Username: req.Username,
		UserId:   participantId,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if joinRoomResp.AlreadyJoined {
		status = http.StatusOK
	}

	rest.WriteJSON(w, status, rest.Envelope{"data": joinRoomResponse{
		JoinRoomResponse: joinRoomResp,
		Session:          session,
	}})
}

func (c controller) listMessages(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	participantId, err := c.getParticipantId(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	messages, err := c.roomService.ListMessages(r.Context(), &room.ListMessagesParams{
		RoomId: roomId,
		UserId: participantId,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": messages})
}
