package scheduler

import (
	"sort"
	"strings"
)

// StatusKey is the resolved key used to pick a decoration.
type StatusKey string

const (
	KeyUnassigned        StatusKey = "unassigned"
	KeyTruckerAssigned   StatusKey = "trucker_assigned"
	KeyMissionSent       StatusKey = "mission_sent_to_trucker"
	KeyAcknowledged      StatusKey = "acknowledged"
	KeyOngoing           StatusKey = "ongoing"
	KeyDone              StatusKey = "done"
	KeyVerified          StatusKey = "verified"
	KeyInvoiced          StatusKey = "invoiced"
	KeyDeclined          StatusKey = "declined"
	KeySentToCharter     StatusKey = "sent_to_charter"
	KeyCharterAssigned   StatusKey = "assigned"
	KeyAcceptedByCharter StatusKey = "accepted_by_charter"
	KeyCancelled         StatusKey = "cancelled"
)

// Decoration is how a trip or segment is drawn for a given status.
type Decoration struct {
	StatusLabel           string  `json:"statusLabel"`
	StatusIcon            string  `json:"statusIcon"`
	StatusIconStrokeWidth float64 `json:"statusIconStrokeWidth"`
	Color                 string  `json:"color"`
}

// unplanned is returned for every key that has no table entry.
var unplanned = Decoration{
	StatusLabel:           "scheduler.status.unplanned",
	StatusIcon:            "calendar",
	StatusIconStrokeWidth: 2,
	Color:                 "grey.dark",
}

var decorations = map[StatusKey]Decoration{
	KeyUnassigned:        unplanned,
	KeyTruckerAssigned:   {StatusLabel: "scheduler.status.truckerAssigned", StatusIcon: "user", StatusIconStrokeWidth: 2, Color: "blue.default"},
	KeyMissionSent:       {StatusLabel: "scheduler.status.missionSentToTrucker", StatusIcon: "send", StatusIconStrokeWidth: 2, Color: "blue.dark"},
	KeyAcknowledged:      {StatusLabel: "scheduler.status.acknowledged", StatusIcon: "thumbsUp", StatusIconStrokeWidth: 2, Color: "purple.default"},
	KeyOngoing:           {StatusLabel: "scheduler.status.ongoing", StatusIcon: "truck", StatusIconStrokeWidth: 1.5, Color: "yellow.dark"},
	KeyDone:              {StatusLabel: "scheduler.status.done", StatusIcon: "check", StatusIconStrokeWidth: 3, Color: "green.default"},
	KeyVerified:          {StatusLabel: "scheduler.status.verified", StatusIcon: "checkDouble", StatusIconStrokeWidth: 2, Color: "green.dark"},
	KeyInvoiced:          {StatusLabel: "scheduler.status.invoiced", StatusIcon: "euro", StatusIconStrokeWidth: 2, Color: "turquoise.dark"},
	KeyDeclined:          {StatusLabel: "scheduler.status.declined", StatusIcon: "thumbsDown", StatusIconStrokeWidth: 2, Color: "red.default"},
	KeySentToCharter:     {StatusLabel: "scheduler.status.sentToCharter", StatusIcon: "share", StatusIconStrokeWidth: 2, Color: "blue.dark"},
	KeyCharterAssigned:   {StatusLabel: "scheduler.status.assigned", StatusIcon: "user", StatusIconStrokeWidth: 2, Color: "blue.default"},
	KeyAcceptedByCharter: {StatusLabel: "scheduler.status.acceptedByCharter", StatusIcon: "handshake", StatusIconStrokeWidth: 2, Color: "purple.default"},
	KeyCancelled:         {StatusLabel: "scheduler.status.cancelled", StatusIcon: "ban", StatusIconStrokeWidth: 2, Color: "red.dark"},
}

// TripState is the status snapshot of a trip or chartering segment.
type TripState struct {
	Status        TripStatus    `json:"status"`
	TruckerStatus TruckerStatus `json:"trucker_status"`
	LicensePlate  string        `json:"license_plate,omitempty"`
	Activities    []Activity    `json:"activities,omitempty"`
}

// NewTripState parses raw status fields, applying the unstarted and
// unassigned defaults. Unknown values are replaced by the defaults too.
func NewTripState(status, truckerStatus, licensePlate string, activities []Activity) TripState {
	ts, _ := ParseTripStatus(status)
	tk, _ := ParseTruckerStatus(truckerStatus)
	return TripState{
		Status:        ts,
		TruckerStatus: tk,
		LicensePlate:  strings.TrimSpace(licensePlate),
		Activities:    activities,
	}
}

// ResolveStatusKey picks the decoration key for s in the given view.
func ResolveStatusKey(s TripState, view ViewMode) StatusKey {
	tripStatus := s.Status
	if tripStatus == "" {
		tripStatus = TripUnstarted
	}
	truckerStatus := s.TruckerStatus
	if truckerStatus == "" {
		truckerStatus = TruckerUnassigned
	}

	// A trip with a vehicle but no driver reads as assigned in vehicle views.
	if view == ViewVehicle && tripStatus == TripUnstarted &&
		truckerStatus == TruckerUnassigned && s.LicensePlate != "" {
		truckerStatus = TruckerAssigned
	}

	key := StatusKey(tripStatus)
	if tripStatus == TripDone && len(s.Activities) > 0 {
		key = refineInvoicing(InvoicingStatuses(s.Activities))
	}

	if tripStatus == TripUnstarted {
		return StatusKey(truckerStatus)
	}
	return key
}

// refineInvoicing maps the invoicing statuses of a done trip to done,
// verified or invoiced. invoiced is checked first.
func refineInvoicing(statuses []InvoicingStatus) StatusKey {
	if len(statuses) == 0 {
		return KeyDone
	}
	if allIn(statuses, InvoicingPaid, InvoicingInvoiced) {
		return KeyInvoiced
	}
	if allIn(statuses, InvoicingVerified, InvoicingPaid, InvoicingInvoiced) {
		return KeyVerified
	}
	return KeyDone
}

func allIn(statuses []InvoicingStatus, allowed ...InvoicingStatus) bool {
	for _, s := range statuses {
		found := false
		for _, a := range allowed {
			if s == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// LookupDecoration returns the decoration for key, or the unplanned
// decoration when key is unknown.
func LookupDecoration(key StatusKey) Decoration {
	if d, ok := decorations[key]; ok {
		return d
	}
	return unplanned
}

// ResolveDecoration returns the decoration for s in the given view.
func ResolveDecoration(s TripState, view ViewMode) Decoration {
	return LookupDecoration(ResolveStatusKey(s, view))
}

// Decorations returns a copy of the full decoration table.
func Decorations() map[StatusKey]Decoration {
	out := make(map[StatusKey]Decoration, len(decorations))
	for k, v := range decorations {
		out[k] = v
	}
	return out
}

// CacheKey identifies every input ResolveDecoration depends on, so equal
// keys always resolve to equal decorations.
func CacheKey(s TripState, view ViewMode) string {
	statuses := InvoicingStatuses(s.Activities)
	sig := make([]string, len(statuses))
	for i, st := range statuses {
		sig[i] = string(st)
	}
	sort.Strings(sig)
	return strings.Join([]string{
		string(s.Status),
		string(s.TruckerStatus),
		string(view),
		s.LicensePlate,
		strings.Join(sig, ","),
	}, "|")
}
