package room

import (
	"context"
	"fmt"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/room"
)

type MemberActionParams struct {
	RoomId      string `json:"room_id"`
	ActorUserId string `json:"actor_user_id"`
	MemberId    string `json:"member_id"`
}

func (s service) authorize(ctx context.Context, params *MemberActionParams, action domain.Action) (domain.Member, error) {
	if err := validateField("room_id", params.RoomId, RoomIdRule...); err != nil {
		return domain.Member{}, err
	}

	if err := validateField("member_id", params.MemberId, MemberIdRule...); err != nil {
		return domain.Member{}, err
	}

	actor, err := s.getActor(ctx, params.RoomId, params.ActorUserId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get actor", "error", err)
		return domain.Member{}, fmt.Errorf("failed to get actor: %w", err)
	}

	target, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
		RoomID:   params.RoomId,
		MemberID: params.MemberId,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get member", "error", err)
		return domain.Member{}, fmt.Errorf("failed to get member: %w", storeErr(err))
	}

	if err := domain.Authorize(actor, action, target); err != nil {
		s.logger.InfoContext(ctx, "action rejected", "action", action, "error", err)
		return domain.Member{}, err
	}

	return target, nil
}

func (s service) patchMember(ctx context.Context, params *MemberActionParams, action domain.Action, patch domain.MemberPatch) (domain.Member, error) {
	if _, err := s.authorize(ctx, params, action); err != nil {
		return domain.Member{}, err
	}

	member, err := s.roomRepo.UpdateMember(ctx, &room.UpdateMemberParams{
		RoomID:   params.RoomId,
		MemberID: params.MemberId,
		Patch:    patch,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to update member", "action", action, "error", err)
		return domain.Member{}, fmt.Errorf("failed to update member: %w", storeErr(err))
	}

	return member, nil
}

// ApproveMember lets a waiting member into the room. Requires host or co-host.
func (s service) ApproveMember(ctx context.Context, params *MemberActionParams) (domain.Member, error) {
	return s.patchMember(ctx, params, domain.ActionApprove, domain.StatusPatch(domain.StatusApproved))
}

// DemoteMember sends a member back to the waiting room. Requires host.
func (s service) DemoteMember(ctx context.Context, params *MemberActionParams) (domain.Member, error) {
	return s.patchMember(ctx, params, domain.ActionDemoteToWaiting, domain.StatusPatch(domain.StatusWaiting))
}

type SetCoHostParams struct {
	MemberActionParams
	IsCoHost bool `json:"is_co_host"`
}

// SetCoHost grants or revokes the co-host role. Requires host.
func (s service) SetCoHost(ctx context.Context, params *SetCoHostParams) (domain.Member, error) {
	role := domain.RoleGuest
	if params.IsCoHost {
		role = domain.RoleCoHost
	}

	return s.patchMember(ctx, &params.MemberActionParams, domain.CoHostAction(params.IsCoHost), domain.RolePatch(role))
}

// KickMember removes the member row. Requires host or co-host.
func (s service) KickMember(ctx context.Context, params *MemberActionParams) (domain.Member, error) {
	if _, err := s.authorize(ctx, params, domain.ActionKick); err != nil {
		return domain.Member{}, err
	}

	member, err := s.roomRepo.DeleteMember(ctx, &room.DeleteMemberParams{
		RoomID:   params.RoomId,
		MemberID: params.MemberId,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to delete member", "error", err)
		return domain.Member{}, fmt.Errorf("failed to delete member: %w", storeErr(err))
	}

	return member, nil
}
