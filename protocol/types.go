package protocol

// Message type constants for the scheduler protocol.
const (
	// TMS -> Core (published on the status topic)
	TypeTripStatus    = "trip.status"
	TypeTripInvoicing = "trip.invoicing"
	TypeSegmentStatus = "segment.status"

	// TMS -> Core master data (published on the status topic)
	TypeTripUpsert     = "trip.upsert"
	TypeTripVehicle    = "trip.vehicle"
	TypeTripDelete     = "trip.delete"
	TypeSegmentUpsert  = "segment.upsert"
	TypeResourceUpsert = "resource.upsert"

	// Core -> subscribers (published on the events topic)
	TypeTripMoved           = "trip.moved"
	TypeTripMoveRejected    = "trip.move_rejected"
	TypeSegmentMoved        = "segment.moved"
	TypeSegmentMoveRejected = "segment.move_rejected"
	TypeDecorationChanged   = "decoration.changed"
)

// Roles for Address.Role.
const (
	RoleCore    = "core"
	RoleTMS     = "tms"
	RoleCharter = "charter"
	RoleDriver  = "driver"
)

// BroadcastStation addresses every listener of a role.
const BroadcastStation = "*"

// Protocol version.
const Version = 1
