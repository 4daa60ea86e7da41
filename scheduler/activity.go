package scheduler

// ActivityKind discriminates the two activity shapes a trip can carry.
type ActivityKind string

const (
	ActivitySingle  ActivityKind = "single"
	ActivityGrouped ActivityKind = "grouped"
)

// TransportRef is the part of a transport the resolver cares about.
type TransportRef struct {
	UID             string          `json:"uid"`
	InvoicingStatus InvoicingStatus `json:"invoicing_status"`
}

// Activity is a loading/unloading step of a trip. A single activity
// references one transport; a grouped activity stands for a set of
// similar activities and references each of their transports.
type Activity struct {
	Kind       ActivityKind   `json:"kind"`
	Transport  *TransportRef  `json:"transport,omitempty"`
	Transports []TransportRef `json:"transports,omitempty"`
}

// SingleActivity builds a single-transport activity.
func SingleActivity(t TransportRef) Activity {
	return Activity{Kind: ActivitySingle, Transport: &t}
}

// GroupedActivity builds a similar-activities group.
func GroupedActivity(ts ...TransportRef) Activity {
	return Activity{Kind: ActivityGrouped, Transports: ts}
}

// transports returns the transports referenced by a, whatever its shape.
func (a Activity) transports() []TransportRef {
	switch a.Kind {
	case ActivitySingle:
		if a.Transport == nil {
			return nil
		}
		return []TransportRef{*a.Transport}
	case ActivityGrouped:
		return a.Transports
	default:
		return nil
	}
}

// InvoicingStatuses flattens the invoicing status of every transport
// referenced by activities, dropping empty values.
func InvoicingStatuses(activities []Activity) []InvoicingStatus {
	var out []InvoicingStatus
	for _, a := range activities {
		for _, t := range a.transports() {
			if t.InvoicingStatus == "" {
				continue
			}
			out = append(out, t.InvoicingStatus)
		}
	}
	return out
}
