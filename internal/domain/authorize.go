package domain

type Action uint8

const (
	ActionApprove Action = iota + 1
	ActionKick
	ActionDemoteToWaiting
	ActionGrantCoHost
	ActionRevokeCoHost
)

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionKick:
		return "kick"
	case ActionDemoteToWaiting:
		return "demote_to_waiting"
	case ActionGrantCoHost:
		return "grant_co_host"
	case ActionRevokeCoHost:
		return "revoke_co_host"
	default:
		return "unknown"
	}
}

// HostOnly reports whether only the host (not a co-host) may perform the action.
func (a Action) HostOnly() bool {
	switch a {
	case ActionDemoteToWaiting, ActionGrantCoHost, ActionRevokeCoHost:
		return true
	default:
		return false
	}
}

// CoHostAction maps setCoHost(isCoHost) to its action.
func CoHostAction(isCoHost bool) Action {
	if isCoHost {
		return ActionGrantCoHost
	}

	return ActionRevokeCoHost
}

// Authorize checks whether actor may perform action against target.
// A nil actor means the caller has no membership in the room.
func Authorize(actor *Member, action Action, target Member) error {
	if actor == nil {
		return unauthorizedf("not a member of this room")
	}

	if !actor.Role.CanManage() {
		return unauthorizedf("%s requires host or co-host", action)
	}

	if action.HostOnly() && actor.Role != RoleHost {
		return unauthorizedf("%s requires host", action)
	}

	if actor.RoomID != target.RoomID {
		return unauthorizedf("member belongs to another room")
	}

	if actor.ID == target.ID || actor.UserID == target.UserID {
		return unauthorizedf("cannot %s own membership", action)
	}

	if target.Role == RoleHost {
		return unauthorizedf("cannot %s the host", action)
	}

	switch action {
	case ActionApprove, ActionKick, ActionDemoteToWaiting, ActionGrantCoHost, ActionRevokeCoHost:
		return nil
	default:
		return validationf("unknown action %d", action)
	}
}
