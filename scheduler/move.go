package scheduler

// UnplannedResourceUID identifies the pool of trips not yet placed on a resource.
const UnplannedResourceUID = "unplanned"

// Messages returned when a move is refused.
const (
	MsgMoveTripDone    = "scheduler.moveTripDone"
	MsgMoveTripOngoing = "scheduler.moveTripOnGoing"
)

// CellPayload locates a slot in the scheduler grid. An empty Day is the
// null day of the unplanned pool.
type CellPayload struct {
	ResourceUID string `json:"resourceUid"`
	Day         string `json:"day"`
	Index       int    `json:"index"`
}

// SameCell reports whether p and o are the same (resource, day) cell,
// regardless of position inside it.
func (p CellPayload) SameCell(o CellPayload) bool {
	return p.ResourceUID == o.ResourceUID && p.Day == o.Day
}

// IsUnplanned reports whether p points into the unplanned pool.
func (p CellPayload) IsUnplanned() bool {
	return p.ResourceUID == UnplannedResourceUID
}

// UnplannedPayload is the canonical slot of the unplanned pool.
func UnplannedPayload() CellPayload {
	return CellPayload{ResourceUID: UnplannedResourceUID, Day: "", Index: 0}
}

// DragKind is the grid surface a drag starts from or ends on.
type DragKind string

const (
	DragScheduler DragKind = "scheduler"
	DragTable     DragKind = "table"
)

// DragContext describes one end of a drag-and-drop gesture.
type DragContext struct {
	Kind    DragKind    `json:"kind"`
	ID      string      `json:"id"`
	Payload CellPayload `json:"payload"`
}

// MoveVerdict is the answer to a move request. Message is a translation
// key and is only set when Result is false.
type MoveVerdict struct {
	Result  bool   `json:"result"`
	Message string `json:"message,omitempty"`
}

// CanMove decides whether an item with the given status may go from
// source to target. Reordering inside a cell is always allowed.
func CanMove(status TripStatus, source, target CellPayload) MoveVerdict {
	if source.SameCell(target) {
		return MoveVerdict{Result: true}
	}
	switch status {
	case TripDone:
		return MoveVerdict{Result: false, Message: MsgMoveTripDone}
	case TripOngoing:
		return MoveVerdict{Result: false, Message: MsgMoveTripOngoing}
	default:
		return MoveVerdict{Result: true}
	}
}

// ResolvePayload returns the grid slot a drag context stands for. The
// table view has no grid, so it always maps to the unplanned pool.
func ResolvePayload(ctx DragContext) CellPayload {
	if ctx.Kind == DragTable {
		return UnplannedPayload()
	}
	return ctx.Payload
}

// IsDroppable is the structural check done before CanMove: it rejects
// gestures that make no sense whatever the item's status.
func IsDroppable(source, target DragContext) bool {
	if source.Kind == DragTable && target.Kind == DragTable {
		return false
	}
	if source.ID == target.ID {
		return false
	}
	if !supportedKind(source.Kind) || !supportedKind(target.Kind) {
		return false
	}
	return ResolvePayload(source) != ResolvePayload(target)
}

func supportedKind(k DragKind) bool {
	return k == DragScheduler || k == DragTable
}
