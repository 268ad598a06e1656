package controller

import (
	"context"
)

const (
	commandPlay       = "play"
	commandPause      = "pause"
	commandSetVolume  = "set_volume"
	commandMute       = "mute"
	commandUnmute     = "unmute"
	commandFullscreen = "fullscreen"
)

type playerCommand struct {
	Command string `json:"command"`
	Volume  *int   `json:"volume,omitempty"`
}

// wsEmbed drives the participant's browser player by sending PLAYER_COMMAND frames.
type wsEmbed struct {
	client *client
}

func (e *wsEmbed) send(cmd playerCommand) error {
	return e.client.writeJSON(&Output{
		Type:    "PLAYER_COMMAND",
		Payload: cmd,
	})
}

func (e *wsEmbed) Play(context.Context) error {
	return e.send(playerCommand{Command: commandPlay})
}

func (e *wsEmbed) Pause(context.Context) error {
	return e.send(playerCommand{Command: commandPause})
}

func (e *wsEmbed) SetVolume(_ context.Context, volume int) error {
	return e.send(playerCommand{Command: commandSetVolume, Volume: &volume})
}

func (e *wsEmbed) Mute(context.Context) error {
	return e.send(playerCommand{Command: commandMute})
}

func (e *wsEmbed) Unmute(context.Context) error {
	return e.send(playerCommand{Command: commandUnmute})
}

func (e *wsEmbed) RequestFullscreen(context.Context) error {
	return e.send(playerCommand{Command: commandFullscreen})
}
