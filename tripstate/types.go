package tripstate

import (
	"tmscore/scheduler"
	"tmscore/store"
)

// Entity names the kind of scheduled item a decoration belongs to.
type Entity string

const (
	EntityTrip    Entity = "trip"
	EntitySegment Entity = "segment"
)

// CachedDecoration is what Redis holds per (entity, view).
type CachedDecoration struct {
	Key        scheduler.StatusKey  `json:"key"`
	Decoration scheduler.Decoration `json:"decoration"`
}

// BoardTrip is a trip as the scheduler grid draws it.
type BoardTrip struct {
	*store.Trip
	StatusKey  scheduler.StatusKey  `json:"status_key"`
	Decoration scheduler.Decoration `json:"decoration"`
}

// BoardSegment is a chartering segment as the scheduler grid draws it.
type BoardSegment struct {
	*store.Segment
	StatusKey  scheduler.StatusKey  `json:"status_key"`
	Decoration scheduler.Decoration `json:"decoration"`
}
