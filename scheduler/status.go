package scheduler

import "strings"

// TripStatus is the lifecycle stage of a trip as a whole.
type TripStatus string

const (
	TripUnstarted TripStatus = "unstarted"
	TripOngoing   TripStatus = "ongoing"
	TripDone      TripStatus = "done"
)

// TruckerStatus is the assignment sub-state between a trip and its driver or charter.
type TruckerStatus string

const (
	TruckerUnassigned        TruckerStatus = "unassigned"
	TruckerAssigned          TruckerStatus = "trucker_assigned"
	TruckerMissionSent       TruckerStatus = "mission_sent_to_trucker"
	TruckerAcknowledged      TruckerStatus = "acknowledged"
	TruckerDeclined          TruckerStatus = "declined"
	TruckerSentToCharter     TruckerStatus = "sent_to_charter"
	TruckerCharterAssigned   TruckerStatus = "assigned"
	TruckerAcceptedByCharter TruckerStatus = "accepted_by_charter"
	TruckerCancelled         TruckerStatus = "cancelled"
)

// InvoicingStatus is attached to each transport. Values other than the
// constants below are valid and simply never refine a decoration.
type InvoicingStatus string

const (
	InvoicingPaid     InvoicingStatus = "PAID"
	InvoicingInvoiced InvoicingStatus = "INVOICED"
	InvoicingVerified InvoicingStatus = "VERIFIED"
)

// ViewMode selects which resource the scheduler grid is organised by.
type ViewMode string

const (
	ViewTrucker    ViewMode = "trucker"
	ViewVehicle    ViewMode = "vehicle"
	ViewTrailer    ViewMode = "trailer"
	ViewChartering ViewMode = "chartering"
)

var tripStatuses = map[TripStatus]struct{}{
	TripUnstarted: {},
	TripOngoing:   {},
	TripDone:      {},
}

var truckerStatuses = map[TruckerStatus]struct{}{
	TruckerUnassigned:        {},
	TruckerAssigned:          {},
	TruckerMissionSent:       {},
	TruckerAcknowledged:      {},
	TruckerDeclined:          {},
	TruckerSentToCharter:     {},
	TruckerCharterAssigned:   {},
	TruckerAcceptedByCharter: {},
	TruckerCancelled:         {},
}

// ParseTripStatus returns the trip status for s, defaulting to unstarted.
// ok is false when s was neither empty nor a known status.
func ParseTripStatus(s string) (TripStatus, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TripUnstarted, true
	}
	st := TripStatus(s)
	if _, known := tripStatuses[st]; !known {
		return TripUnstarted, false
	}
	return st, true
}

// ParseTruckerStatus returns the trucker status for s, defaulting to unassigned.
func ParseTruckerStatus(s string) (TruckerStatus, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TruckerUnassigned, true
	}
	st := TruckerStatus(s)
	if _, known := truckerStatuses[st]; !known {
		return TruckerUnassigned, false
	}
	return st, true
}

// ParseViewMode returns the view mode for s. Unknown values fall back to trucker.
func ParseViewMode(s string) ViewMode {
	switch v := ViewMode(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewVehicle, ViewTrailer, ViewChartering:
		return v
	default:
		return ViewTrucker
	}
}

// ViewModes lists every supported view mode.
func ViewModes() []ViewMode {
	return []ViewMode{ViewTrucker, ViewVehicle, ViewTrailer, ViewChartering}
}
