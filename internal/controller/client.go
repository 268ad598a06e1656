package controller

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lulubrolive/server/internal/playback"
	"github.com/lulubrolive/server/internal/roomview"
)

const (
	writeWait = 5 * time.Second

	closeCodeReplaced   = 4000
	closeCodeKicked     = 4001
	closeCodeRoomClosed = 4002
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client is one participant's websocket in one room. The connection is
// written from the read loop and from the view goroutine, so writes are serialized.
type client struct {
	conn          *websocket.Conn
	roomId        string
	participantId string
	view          *roomview.View
	gate          *playback.Gate

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, roomId, participantId string, view *roomview.View) *client {
	cl := &client{
		conn:          conn,
		roomId:        roomId,
		participantId: participantId,
		view:          view,
	}
	cl.gate = playback.NewGate(&wsEmbed{client: cl}, view)

	return cl
}

func (cl *client) writeJSON(out *Output) error {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()

	if err := cl.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return cl.conn.WriteJSON(out)
}

// close sends a close frame with code and reason and closes the connection.
// Only the first call has an effect.
func (cl *client) close(code int, reason string) {
	cl.closeOnce.Do(func() {
		cl.writeMu.Lock()
		cl.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		cl.writeMu.Unlock()
		cl.conn.Close()
	})
}
