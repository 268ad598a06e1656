// Package playback gates a participant's control over the embedded player.
// Play/pause is reserved for the host and co-hosts; volume, mute and
// fullscreen only affect the local viewer and are open to everyone.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/lulubrolive/server/internal/domain"
)

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 50
)

var ErrUnknownState = errors.New("unknown player state")

type State string

const (
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePlaying, StatePaused, StateEnded:
		return State(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
}

// Embed is the external video player.
type Embed interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	RequestFullscreen(ctx context.Context) error
}

// Authority answers whether the local participant currently holds playback rights.
type Authority interface {
	IsHostOrCoHost() bool
}

type Status struct {
	Volume  int  `json:"volume"`
	Muted   bool `json:"muted"`
	Playing bool `json:"playing"`
}

type Gate struct {
	embed      Embed
	authority  Authority
	volume     int
	lastVolume int
	muted      bool
	playing    bool
}

func NewGate(embed Embed, authority Authority) *Gate {
	return &Gate{
		embed:      embed,
		authority:  authority,
		volume:     DefaultVolume,
		lastVolume: DefaultVolume,
	}
}

func (g *Gate) Status() Status {
	return Status{
		Volume:  g.volume,
		Muted:   g.muted,
		Playing: g.playing,
	}
}

func (g *Gate) checkControl(op string) error {
	if g.authority == nil || !g.authority.IsHostOrCoHost() {
		return fmt.Errorf("%w: %s requires host or co-host", domain.ErrUnauthorized, op)
	}

	return nil
}

func (g *Gate) Play(ctx context.Context) error {
	if err := g.checkControl("play"); err != nil {
		return err
	}

	if err := g.embed.Play(ctx); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	g.playing = true
	return nil
}

func (g *Gate) Pause(ctx context.Context) error {
	if err := g.checkControl("pause"); err != nil {
		return err
	}

	if err := g.embed.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	g.playing = false
	return nil
}

func (g *Gate) TogglePlay(ctx context.Context) error {
	if g.playing {
		return g.Pause(ctx)
	}

	return g.Play(ctx)
}

func clamp(volume int) int {
	return max(MinVolume, min(MaxVolume, volume))
}

// SetVolume clamps volume to [0,100]. Zero mutes, any positive value unmutes.
func (g *Gate) SetVolume(ctx context.Context, volume int) error {
	vol := clamp(volume)

	if err := g.embed.SetVolume(ctx, vol); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	switch {
	case vol == 0 && !g.muted:
		if err := g.embed.Mute(ctx); err != nil {
			return fmt.Errorf("failed to mute: %w", err)
		}
	case vol > 0 && g.muted:
		if err := g.embed.Unmute(ctx); err != nil {
			return fmt.Errorf("failed to unmute: %w", err)
		}
	}

	g.volume = vol
	g.muted = vol == 0
	if vol > 0 {
		g.lastVolume = vol
	}

	return nil
}

// Mute sets the logical volume to 0 and remembers the last positive volume.
func (g *Gate) Mute(ctx context.Context) error {
	if g.muted {
		return nil
	}

	if err := g.embed.Mute(ctx); err != nil {
		return fmt.Errorf("failed to mute: %w", err)
	}

	if g.volume > 0 {
		g.lastVolume = g.volume
	}
	g.volume = 0
	g.muted = true

	return nil
}

// Unmute restores the last positive volume, or DefaultVolume if there was none.
func (g *Gate) Unmute(ctx context.Context) error {
	if !g.muted {
		return nil
	}

	restore := g.lastVolume
	if restore <= 0 {
		restore = DefaultVolume
	}

	if err := g.embed.Unmute(ctx); err != nil {
		return fmt.Errorf("failed to unmute: %w", err)
	}
	if err := g.embed.SetVolume(ctx, restore); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	g.volume = restore
	g.muted = false

	return nil
}

func (g *Gate) ToggleMute(ctx context.Context) error {
	if g.muted {
		return g.Unmute(ctx)
	}

	return g.Mute(ctx)
}

func (g *Gate) RequestFullscreen(ctx context.Context) error {
	if err := g.embed.RequestFullscreen(ctx); err != nil {
		return fmt.Errorf("failed to request fullscreen: %w", err)
	}

	return nil
}

// OnState records a state notification emitted by the embed.
func (g *Gate) OnState(state State) {
	switch state {
	case StatePlaying:
		g.playing = true
	case StatePaused, StateEnded:
		g.playing = false
	}
}
