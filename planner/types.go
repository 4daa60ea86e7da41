package planner

import (
	"context"
	"errors"

	"tmscore/scheduler"
)

// Entity is the kind of scheduled item being moved.
type Entity string

const (
	EntityTrip    Entity = "trip"
	EntitySegment Entity = "segment"
)

// ErrUpstream wraps a placement the TMS backend refused. The local
// placement has been rolled back when it is returned.
var ErrUpstream = errors.New("upstream placement failed")

// ErrInvalid wraps master data that cannot be stored as sent.
var ErrInvalid = errors.New("invalid request")

// Backend pushes placements to the TMS that owns trips and segments.
type Backend interface {
	PatchTripPlacement(ctx context.Context, uid string, cell scheduler.CellPayload) error
	PatchSegmentPlacement(ctx context.Context, uid string, cell scheduler.CellPayload) error
}

// MoveRequest is one drag-and-drop gesture on the scheduler.
type MoveRequest struct {
	ID     int64                 `json:"id"`
	Source scheduler.DragContext `json:"source"`
	Target scheduler.DragContext `json:"target"`
	Actor  string                `json:"-"`
}

// MoveOutcome reports what happened to a MoveRequest. Droppable false means
// the gesture was ignored and nothing else is set.
type MoveOutcome struct {
	Droppable bool                  `json:"droppable"`
	Verdict   scheduler.MoveVerdict `json:"verdict"`
	From      scheduler.CellPayload `json:"from"`
	To        scheduler.CellPayload `json:"to"`
}
