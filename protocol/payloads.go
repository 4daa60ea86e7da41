package protocol

import "tmscore/scheduler"

// --- TMS -> Core payloads ---

// TripStatus reports a trip's progress or trucker acknowledgement. Empty
// fields default to unstarted/unassigned on ingestion.
type TripStatus struct {
	TripUID       string `json:"trip_uid"`
	Status        string `json:"status"`
	TruckerStatus string `json:"trucker_status"`
	Detail        string `json:"detail,omitempty"`
}

// TripInvoicing reports the invoicing status of one transport. Every trip
// with an activity on that transport is re-decorated.
type TripInvoicing struct {
	TransportUID    string `json:"transport_uid"`
	InvoicingStatus string `json:"invoicing_status"`
}

// SegmentStatus reports a chartering segment's progress.
type SegmentStatus struct {
	SegmentUID    string `json:"segment_uid"`
	Status        string `json:"status"`
	TruckerStatus string `json:"trucker_status"`
}

// --- TMS -> Core master data ---

// TransportRef names a transport by uid. A non-empty InvoicingStatus is
// applied as if a trip.invoicing message had arrived.
type TransportRef struct {
	UID             string `json:"uid"`
	InvoicingStatus string `json:"invoicing_status,omitempty"`
}

// ActivityUpsert is one stop of a trip. Single activities carry exactly one
// transport, grouped ones any number.
type ActivityUpsert struct {
	Kind       scheduler.ActivityKind `json:"kind"`
	Label      string                 `json:"label"`
	Transports []TransportRef         `json:"transports"`
}

// TripUpsert creates a trip or replaces its fields. A nil Position appends
// the trip at the end of its cell; a nil Activities list keeps the current
// activities.
type TripUpsert struct {
	TripUID       string           `json:"trip_uid"`
	Name          string           `json:"name"`
	Status        string           `json:"status"`
	TruckerStatus string           `json:"trucker_status"`
	ResourceUID   string           `json:"resource_uid"`
	Day           string           `json:"day"`
	Position      *int             `json:"position,omitempty"`
	VehiclePlate  string           `json:"vehicle_plate"`
	TrailerPlate  string           `json:"trailer_plate"`
	TruckerName   string           `json:"trucker_name"`
	Activities    []ActivityUpsert `json:"activities"`
}

// TripVehicle assigns a vehicle, trailer and trucker to a trip.
type TripVehicle struct {
	TripUID      string `json:"trip_uid"`
	VehiclePlate string `json:"vehicle_plate"`
	TrailerPlate string `json:"trailer_plate"`
	TruckerName  string `json:"trucker_name"`
}

type TripDelete struct {
	TripUID string `json:"trip_uid"`
	Reason  string `json:"reason,omitempty"`
}

// SegmentUpsert creates a chartering segment or replaces its fields.
type SegmentUpsert struct {
	SegmentUID    string `json:"segment_uid"`
	TripUID       string `json:"trip_uid,omitempty"`
	CarrierName   string `json:"carrier_name"`
	Status        string `json:"status"`
	TruckerStatus string `json:"trucker_status"`
	ResourceUID   string `json:"resource_uid"`
	Day           string `json:"day"`
	Position      *int   `json:"position,omitempty"`
}

// ResourceUpsert creates or relabels a scheduler row.
type ResourceUpsert struct {
	ResourceUID  string `json:"resource_uid"`
	Kind         string `json:"kind"`
	Label        string `json:"label"`
	LicensePlate string `json:"license_plate"`
}

// --- Core -> subscribers payloads ---

type TripMoved struct {
	TripUID string                `json:"trip_uid"`
	From    scheduler.CellPayload `json:"from"`
	To      scheduler.CellPayload `json:"to"`
	Actor   string                `json:"actor"`
}

// TripMoveRejected carries the translation key of the refusal.
type TripMoveRejected struct {
	TripUID string                `json:"trip_uid"`
	From    scheduler.CellPayload `json:"from"`
	To      scheduler.CellPayload `json:"to"`
	Message string                `json:"message"`
	Actor   string                `json:"actor"`
}

type SegmentMoveRejected struct {
	SegmentUID string                `json:"segment_uid"`
	From       scheduler.CellPayload `json:"from"`
	To         scheduler.CellPayload `json:"to"`
	Message    string                `json:"message"`
	Actor      string                `json:"actor"`
}

type SegmentMoved struct {
	SegmentUID string                `json:"segment_uid"`
	From       scheduler.CellPayload `json:"from"`
	To         scheduler.CellPayload `json:"to"`
	Actor      string                `json:"actor"`
}

// DecorationChanged announces the new decoration of a trip or segment.
type DecorationChanged struct {
	EntityType string               `json:"entity_type"`
	EntityUID  string               `json:"entity_uid"`
	View       scheduler.ViewMode   `json:"view"`
	StatusKey  scheduler.StatusKey  `json:"status_key"`
	Decoration scheduler.Decoration `json:"decoration"`
}
