package controller

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/playback"
	"github.com/lulubrolive/server/internal/projector"
	"github.com/lulubrolive/server/internal/roomview"
	"github.com/lulubrolive/server/pkg/ctxlogger"
	"github.com/lulubrolive/server/pkg/ytvideo"
)

type roomState struct {
	projector.Snapshot
	EmbedURL string          `json:"embed_url,omitempty"`
	Player   playback.Status `json:"player"`
}

// connectRoom upgrades to a websocket bound to one room view. The session
// token travels in the query because browsers cannot set websocket headers.
func (c controller) connectRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	participantId, err := c.roomService.ParseSession(r.URL.Query().Get("session"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("room_id", roomId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", participantId))

	view, err := roomview.Open(ctx, c.roomService, c.subscriber, c.logger, roomId, participantId)
	if err != nil {
		c.writeError(w, r.WithContext(ctx), err)
		return
	}
	defer view.Close()

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}

	cl := newClient(conn, roomId, participantId, view)
	defer cl.close(websocket.CloseNormalClosure, "")

	if prev := c.clients.Add(cl); prev != nil {
		c.logger.InfoContext(ctx, "replacing previous connection")
		prev.close(closeCodeReplaced, "replaced by a newer connection")
	}
	defer c.clients.Remove(cl)

	snapshot := view.Snapshot()
	state := roomState{
		Snapshot: snapshot,
		Player:   cl.gate.Status(),
	}
	if videoId, ok := ytvideo.ExtractID(snapshot.Room.VideoURL); ok {
		state.EmbedURL = ytvideo.EmbedURL(videoId, r.Header.Get("Origin"))
	}

	if err := cl.writeJSON(&Output{Type: "ROOM_STATE", Payload: state}); err != nil {
		c.logger.WarnContext(ctx, "failed to write room state", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.runView(ctx, cl)

	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, participantIdCtxKey, participantId)
	ctx = context.WithValue(ctx, clientCtxKey, cl)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil && !isExpectedClose(err) {
		c.logger.InfoContext(ctx, "failed to serve conn", "error", err)
	}
}

// runView forwards the room view to the client until the view ends. Ending the
// view closes the connection, which stops the read loop.
func (c controller) runView(ctx context.Context, cl *client) {
	err := cl.view.Run(ctx, &viewSink{client: cl})

	switch {
	case ctx.Err() != nil:
	case errors.Is(err, roomview.ErrKicked):
		c.logger.InfoContext(ctx, "participant kicked")
		cl.close(closeCodeKicked, "kicked")
	case errors.Is(err, roomview.ErrRoomClosed):
		c.logger.InfoContext(ctx, "room closed")
		cl.close(closeCodeRoomClosed, "room closed")
	default:
		c.logger.WarnContext(ctx, "room view stopped", "error", err)
		cl.close(websocket.CloseInternalServerErr, "room view stopped")
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		closeCodeReplaced,
		closeCodeKicked,
		closeCodeRoomClosed,
	) || errors.Is(err, net.ErrClosed)
}

// viewSink renders room view output as websocket frames.
type viewSink struct {
	client *client
}

func (s *viewSink) OnRoster(_ context.Context, snapshot projector.Snapshot) error {
	return s.client.writeJSON(&Output{Type: "ROSTER_UPDATED", Payload: snapshot})
}

func (s *viewSink) OnMessage(_ context.Context, msg domain.Message) error {
	return s.client.writeJSON(&Output{Type: "MESSAGE_CREATED", Payload: msg})
}

func (s *viewSink) OnKicked(context.Context) error {
	return s.client.writeJSON(&Output{Type: "KICKED", Payload: nil})
}

func (s *viewSink) OnClosed(context.Context) error {
	return s.client.writeJSON(&Output{Type: "ROOM_CLOSED", Payload: nil})
}
