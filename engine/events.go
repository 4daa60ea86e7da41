package engine

import "tmscore/scheduler"

const (
	EventTripMoved EventType = iota + 1
	EventMoveRejected
	EventTripStatusChanged
	EventSegmentMoved
	EventSegmentStatusChanged
	EventTransportInvoiced
	EventBackendConnected
	EventBackendDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
	EventTripSynced
	EventTripVehicleChanged
	EventTripDeleted
	EventSegmentSynced
	EventResourceSynced
)

// --- Event payloads ---

type TripMovedEvent struct {
	TripID  int64
	TripUID string
	From    scheduler.CellPayload
	To      scheduler.CellPayload
	Actor   string
}

// MoveRejectedEvent covers both trips and segments; EntityType says which.
type MoveRejectedEvent struct {
	EntityType string
	EntityID   int64
	EntityUID  string
	From       scheduler.CellPayload
	To         scheduler.CellPayload
	Message    string
	Actor      string
}

type TripStatusChangedEvent struct {
	TripID     int64
	TripUID    string
	OldStatus  string
	NewStatus  string
	OldTrucker string
	NewTrucker string
	Detail     string
}

type SegmentMovedEvent struct {
	SegmentID  int64
	SegmentUID string
	From       scheduler.CellPayload
	To         scheduler.CellPayload
	Actor      string
}

type SegmentStatusChangedEvent struct {
	SegmentID  int64
	SegmentUID string
	OldStatus  string
	NewStatus  string
	OldTrucker string
	NewTrucker string
}

type TransportInvoicedEvent struct {
	TransportID  int64
	TransportUID string
	OldStatus    string
	NewStatus    string
	TripIDs      []int64
}

// SyncedEvent reports master data written by the TMS or an operator.
// Created is false when an existing row was replaced.
type SyncedEvent struct {
	EntityID  int64
	EntityUID string
	Created   bool
	Actor     string
}

type TripVehicleChangedEvent struct {
	TripID   int64
	TripUID  string
	OldPlate string
	NewPlate string
	Actor    string
}

type TripDeletedEvent struct {
	TripID  int64
	TripUID string
	Reason  string
	Actor   string
}

type ConnectionEvent struct {
	Detail string
}
