package gateway

import "context"

// Frame is one event delivered by the platform gateway. Membership
// frames describe a room transition; command frames carry an
// administrative trigger whose privilege check was resolved upstream.
type Frame struct {
	ID         string `json:"id"`
	Type       string `json:"type"` // "membership" or "command"
	Room       string `json:"room"`
	User       string `json:"user"`
	Joined     bool   `json:"joined"`
	Left       bool   `json:"left"`
	Command    string `json:"command"`
	Requester  string `json:"requester"`
	Privileged bool   `json:"privileged"`
}

const (
	FrameMembership = "membership"
	FrameCommand    = "command"

	CommandStart = "start"
	CommandEnd   = "end"
)

// Handler consumes gateway events. Dispatch is serialized: the client
// runs a single read loop, so implementations need no internal
// ordering guarantees beyond per-call safety.
type Handler interface {
	HandleMembership(user string, entered, left bool)
	HandleCommand(ctx context.Context, command, requester string, privileged bool)
}

// Directory answers room occupancy queries against the platform's
// REST API. Queried once when tracking starts to seed users already
// present in the monitored room.
type Directory interface {
	PresentUsers(ctx context.Context, room string) ([]string, error)
}
