package engine

import (
	"tmscore/planner"
	"tmscore/scheduler"
)

// plannerEmitter bridges the planner's emitter interface to the EventBus.
type plannerEmitter struct {
	bus *EventBus
}

var _ planner.Emitter = (*plannerEmitter)(nil)

func (e *plannerEmitter) EmitTripMoved(tripID int64, tripUID string, from, to scheduler.CellPayload, actor string) {
	e.bus.Emit(Event{Type: EventTripMoved, Payload: TripMovedEvent{
		TripID:  tripID,
		TripUID: tripUID,
		From:    from,
		To:      to,
		Actor:   actor,
	}})
}

func (e *plannerEmitter) EmitMoveRejected(entity planner.Entity, id int64, uid string, from, to scheduler.CellPayload, message, actor string) {
	e.bus.Emit(Event{Type: EventMoveRejected, Payload: MoveRejectedEvent{
		EntityType: string(entity),
		EntityID:   id,
		EntityUID:  uid,
		From:       from,
		To:         to,
		Message:    message,
		Actor:      actor,
	}})
}

func (e *plannerEmitter) EmitTripStatusChanged(tripID int64, tripUID, oldStatus, newStatus, oldTrucker, newTrucker, detail string) {
	e.bus.Emit(Event{Type: EventTripStatusChanged, Payload: TripStatusChangedEvent{
		TripID:     tripID,
		TripUID:    tripUID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		OldTrucker: oldTrucker,
		NewTrucker: newTrucker,
		Detail:     detail,
	}})
}

func (e *plannerEmitter) EmitSegmentMoved(segmentID int64, segmentUID string, from, to scheduler.CellPayload, actor string) {
	e.bus.Emit(Event{Type: EventSegmentMoved, Payload: SegmentMovedEvent{
		SegmentID:  segmentID,
		SegmentUID: segmentUID,
		From:       from,
		To:         to,
		Actor:      actor,
	}})
}

func (e *plannerEmitter) EmitSegmentStatusChanged(segmentID int64, segmentUID, oldStatus, newStatus, oldTrucker, newTrucker string) {
	e.bus.Emit(Event{Type: EventSegmentStatusChanged, Payload: SegmentStatusChangedEvent{
		SegmentID:  segmentID,
		SegmentUID: segmentUID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		OldTrucker: oldTrucker,
		NewTrucker: newTrucker,
	}})
}

func (e *plannerEmitter) EmitTransportInvoiced(transportID int64, transportUID, oldStatus, newStatus string, tripIDs []int64) {
	e.bus.Emit(Event{Type: EventTransportInvoiced, Payload: TransportInvoicedEvent{
		TransportID:  transportID,
		TransportUID: transportUID,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		TripIDs:      tripIDs,
	}})
}

func (e *plannerEmitter) EmitTripSynced(tripID int64, tripUID string, created bool, actor string) {
	e.bus.Emit(Event{Type: EventTripSynced, Payload: SyncedEvent{EntityID: tripID, EntityUID: tripUID, Created: created, Actor: actor}})
}

func (e *plannerEmitter) EmitTripVehicleChanged(tripID int64, tripUID, oldPlate, newPlate, actor string) {
	e.bus.Emit(Event{Type: EventTripVehicleChanged, Payload: TripVehicleChangedEvent{
		TripID:   tripID,
		TripUID:  tripUID,
		OldPlate: oldPlate,
		NewPlate: newPlate,
		Actor:    actor,
	}})
}

func (e *plannerEmitter) EmitTripDeleted(tripID int64, tripUID, reason, actor string) {
	e.bus.Emit(Event{Type: EventTripDeleted, Payload: TripDeletedEvent{TripID: tripID, TripUID: tripUID, Reason: reason, Actor: actor}})
}

func (e *plannerEmitter) EmitSegmentSynced(segmentID int64, segmentUID string, created bool, actor string) {
	e.bus.Emit(Event{Type: EventSegmentSynced, Payload: SyncedEvent{EntityID: segmentID, EntityUID: segmentUID, Created: created, Actor: actor}})
}

func (e *plannerEmitter) EmitResourceSynced(resourceID int64, resourceUID string, created bool, actor string) {
	e.bus.Emit(Event{Type: EventResourceSynced, Payload: SyncedEvent{EntityID: resourceID, EntityUID: resourceUID, Created: created, Actor: actor}})
}
