package controller

import (
	"github.com/lulubrolive/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "ALIVE", c.handleAlive)

	// chat
	wsrouter.Handle(mux, "SEND_MESSAGE", c.handleSendMessage)

	// member
	wsrouter.Handle(mux, "APPROVE_MEMBER", c.handleApproveMember)
	wsrouter.Handle(mux, "KICK_MEMBER", c.handleKickMember)
	wsrouter.Handle(mux, "DEMOTE_MEMBER", c.handleDemoteMember)
	wsrouter.Handle(mux, "SET_CO_HOST", c.handleSetCoHost)

	// room
	wsrouter.Handle(mux, "CLOSE_ROOM", c.handleCloseRoom)

	// player
	wsrouter.Handle(mux, "PLAY", c.handlePlay)
	wsrouter.Handle(mux, "PAUSE", c.handlePause)
	wsrouter.Handle(mux, "TOGGLE_PLAY", c.handleTogglePlay)
	wsrouter.Handle(mux, "SET_VOLUME", c.handleSetVolume)
	wsrouter.Handle(mux, "MUTE", c.handleMute)
	wsrouter.Handle(mux, "UNMUTE", c.handleUnmute)
	wsrouter.Handle(mux, "FULLSCREEN", c.handleFullscreen)
	wsrouter.Handle(mux, "PLAYER_STATE_CHANGED", c.handlePlayerStateChanged)

	return mux
}
