package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/playback"
	"github.com/lulubrolive/server/internal/service/room"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c controller) validateInput(input any) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %s", domain.ErrValidation, validationErrors[0].Message)
	}

	return nil
}

type SendMessageInput struct {
	Content string `json:"content"`
}

// handleSendMessage stores the message. The sender sees it through the change
// feed like everyone else.
func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	if _, err := c.roomService.SendMessage(ctx, &room.SendMessageParams{
		RoomId:  c.getRoomIdFromCtx(ctx),
		UserId:  c.getParticipantIdFromCtx(ctx),
		Content: input.Content,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

type MemberInput struct {
	MemberId string `json:"member_id" validate:"required,uuid"`
}

// memberAction prechecks action against the mirrored roster before calling the service.
func (c controller) memberAction(ctx context.Context, action domain.Action, input MemberInput) (*room.MemberActionParams, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	if cl := c.getClientFromCtx(ctx); cl != nil {
		if err := cl.view.Authorize(action, input.MemberId); err != nil {
			return nil, err
		}
	}

	return &room.MemberActionParams{
		RoomId:      c.getRoomIdFromCtx(ctx),
		ActorUserId: c.getParticipantIdFromCtx(ctx),
		MemberId:    input.MemberId,
	}, nil
}

func (c controller) handleApproveMember(ctx context.Context, _ *websocket.Conn, input MemberInput) error {
	params, err := c.memberAction(ctx, domain.ActionApprove, input)
	if err != nil {
		return err
	}

	if _, err := c.roomService.ApproveMember(ctx, params); err != nil {
		return fmt.Errorf("failed to approve member: %w", err)
	}

	return nil
}

func (c controller) handleKickMember(ctx context.Context, _ *websocket.Conn, input MemberInput) error {
	params, err := c.memberAction(ctx, domain.ActionKick, input)
	if err != nil {
		return err
	}

	if _, err := c.roomService.KickMember(ctx, params); err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}

	return nil
}

func (c controller) handleDemoteMember(ctx context.Context, _ *websocket.Conn, input MemberInput) error {
	params, err := c.memberAction(ctx, domain.ActionDemoteToWaiting, input)
	if err != nil {
		return err
	}

	if _, err := c.roomService.DemoteMember(ctx, params); err != nil {
		return fmt.Errorf("failed to demote member: %w", err)
	}

	return nil
}

type SetCoHostInput struct {
	MemberInput
	IsCoHost bool `json:"is_co_host"`
}

func (c controller) handleSetCoHost(ctx context.Context, _ *websocket.Conn, input SetCoHostInput) error {
	params, err := c.memberAction(ctx, domain.CoHostAction(input.IsCoHost), input.MemberInput)
	if err != nil {
		return err
	}

	if _, err := c.roomService.SetCoHost(ctx, &room.SetCoHostParams{
		MemberActionParams: *params,
		IsCoHost:           input.IsCoHost,
	}); err != nil {
		return fmt.Errorf("failed to set co-host: %w", err)
	}

	return nil
}

func (c controller) handleCloseRoom(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	if _, err := c.roomService.CloseRoom(ctx, &room.CloseRoomParams{
		RoomId:      c.getRoomIdFromCtx(ctx),
		ActorUserId: c.getParticipantIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to close room: %w", err)
	}

	return nil
}

// withGate runs fn against the client's playback gate and reports the resulting player state.
func (c controller) withGate(ctx context.Context, fn func(*playback.Gate) error) error {
	cl := c.getClientFromCtx(ctx)
	if cl == nil {
		return fmt.Errorf("%w: no player attached", domain.ErrNotFound)
	}

	if err := fn(cl.gate); err != nil {
		return err
	}

	return cl.writeJSON(&Output{Type: "PLAYER_STATE", Payload: cl.gate.Status()})
}

func (c controller) handlePlay(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.Play(ctx) })
}

func (c controller) handlePause(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.Pause(ctx) })
}

func (c controller) handleTogglePlay(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.TogglePlay(ctx) })
}

type SetVolumeInput struct {
	Volume int `json:"volume"`
}

func (c controller) handleSetVolume(ctx context.Context, _ *websocket.Conn, input SetVolumeInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.SetVolume(ctx, input.Volume) })
}

func (c controller) handleMute(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.Mute(ctx) })
}

func (c controller) handleUnmute(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.Unmute(ctx) })
}

func (c controller) handleFullscreen(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.withGate(ctx, func(g *playback.Gate) error { return g.RequestFullscreen(ctx) })
}

type PlayerStateInput struct {
	State string `json:"state" validate:"required,oneof=playing paused ended"`
}

func (c controller) handlePlayerStateChanged(ctx context.Context, _ *websocket.Conn, input PlayerStateInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	state, err := playback.ParseState(input.State)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	return c.withGate(ctx, func(g *playback.Gate) error {
		g.OnState(state)
		return nil
	})
}
