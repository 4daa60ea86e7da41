package planner

import "tmscore/scheduler"

// Emitter is the interface adapters must satisfy to bridge planner events to the engine.
type Emitter interface {
	EmitTripMoved(tripID int64, tripUID string, from, to scheduler.CellPayload, actor string)
	EmitMoveRejected(entity Entity, id int64, uid string, from, to scheduler.CellPayload, message, actor string)
	EmitTripStatusChanged(tripID int64, tripUID, oldStatus, newStatus, oldTrucker, newTrucker, detail string)
	EmitSegmentMoved(segmentID int64, segmentUID string, from, to scheduler.CellPayload, actor string)
	EmitSegmentStatusChanged(segmentID int64, segmentUID, oldStatus, newStatus, oldTrucker, newTrucker string)
	EmitTransportInvoiced(transportID int64, transportUID, oldStatus, newStatus string, tripIDs []int64)
	EmitTripSynced(tripID int64, tripUID string, created bool, actor string)
	EmitTripVehicleChanged(tripID int64, tripUID, oldPlate, newPlate, actor string)
	EmitTripDeleted(tripID int64, tripUID, reason, actor string)
	EmitSegmentSynced(segmentID int64, segmentUID string, created bool, actor string)
	EmitResourceSynced(resourceID int64, resourceUID string, created bool, actor string)
}
