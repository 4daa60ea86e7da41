package planner

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"tmscore/protocol"
	"tmscore/scheduler"
	"tmscore/store"
)

// SyncActor is recorded on changes pushed by the TMS over the message bus.
const SyncActor = "tms:sync"

// UpsertTrip creates the trip or replaces its fields with the ones the TMS
// sent. A placement that differs from the stored one is applied as a move
// recorded in the history; the move rules do not apply to the owner of the
// trip.
func (p *Planner) UpsertTrip(u *protocol.TripUpsert, actor string) (*store.Trip, error) {
	if u.TripUID == "" {
		return nil, fmt.Errorf("%w: trip uid is required", ErrInvalid)
	}
	if err := validateActivities(u.Activities); err != nil {
		return nil, err
	}
	status, trucker := normalize(u.Status, u.TruckerStatus)
	target := cellOf(u.ResourceUID, u.Day)
	u.VehiclePlate, u.TrailerPlate = strings.TrimSpace(u.VehiclePlate), strings.TrimSpace(u.TrailerPlate)

	trip, err := p.db.GetTripByUID(u.TripUID)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		tail, err := p.tripTail(target, 0)
		if err != nil {
			return nil, err
		}
		trip = &store.Trip{
			UID:           u.TripUID,
			Name:          u.Name,
			Status:        status,
			TruckerStatus: trucker,
			ResourceUID:   target.ResourceUID,
			Day:           target.Day,
			Position:      tail,
			VehiclePlate:  u.VehiclePlate,
			TrailerPlate:  u.TrailerPlate,
			TruckerName:   u.TruckerName,
		}
		if err := p.db.CreateTrip(trip); err != nil {
			return nil, err
		}
		created = true
		if u.Position != nil && *u.Position < tail {
			target.Index = *u.Position
			if _, err := p.db.MoveTrip(trip.ID, target, actor); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, err
	default:
		trip.Name = u.Name
		trip.Status, trip.TruckerStatus = status, trucker
		trip.VehiclePlate, trip.TrailerPlate, trip.TruckerName = u.VehiclePlate, u.TrailerPlate, u.TruckerName
		if err := p.db.UpdateTrip(trip); err != nil {
			return nil, err
		}
		if err := p.placeTrip(trip, target, u.Position, actor); err != nil {
			return nil, err
		}
	}

	if u.Activities != nil {
		if err := p.replaceActivities(trip.ID, u.Activities); err != nil {
			return nil, err
		}
	}

	p.emitter.EmitTripSynced(trip.ID, trip.UID, created, actor)
	return p.db.GetTrip(trip.ID)
}

// placeTrip moves an existing trip to the cell the TMS reports, when it
// differs from the stored one.
func (p *Planner) placeTrip(trip *store.Trip, target scheduler.CellPayload, pos *int, actor string) error {
	at := trip.Payload()
	if at.SameCell(target) && (pos == nil || *pos == at.Index) {
		return nil
	}
	if pos != nil {
		target.Index = *pos
	} else {
		tail, err := p.tripTail(target, trip.ID)
		if err != nil {
			return err
		}
		target.Index = tail
	}
	_, err := p.db.MoveTrip(trip.ID, target, actor)
	return err
}

// tripTail is the index after the last trip of the cell, skip excluded.
func (p *Planner) tripTail(cell scheduler.CellPayload, skip int64) (int, error) {
	trips, err := p.db.ListTripsInCell(cell.ResourceUID, cell.Day)
	if err != nil {
		return 0, fmt.Errorf("list cell %s/%s: %w", cell.ResourceUID, cell.Day, err)
	}
	n := 0
	for _, t := range trips {
		if t.ID != skip {
			n++
		}
	}
	return n, nil
}

func validateActivities(acts []protocol.ActivityUpsert) error {
	for i, a := range acts {
		switch a.Kind {
		case scheduler.ActivitySingle:
			if len(a.Transports) != 1 {
				return fmt.Errorf("%w: activity %d: single activity needs one transport, got %d", ErrInvalid, i, len(a.Transports))
			}
		case scheduler.ActivityGrouped:
		default:
			return fmt.Errorf("%w: activity %d: unknown kind %q", ErrInvalid, i, a.Kind)
		}
		for _, t := range a.Transports {
			if t.UID == "" {
				return fmt.Errorf("%w: activity %d: transport without uid", ErrInvalid, i)
			}
		}
	}
	return nil
}

// replaceActivities swaps the trip's activities for acts, creating unknown
// transports and applying any invoicing status they carry.
func (p *Planner) replaceActivities(tripID int64, acts []protocol.ActivityUpsert) error {
	if err := p.db.ClearTripActivities(tripID); err != nil {
		return err
	}
	for _, a := range acts {
		ids := make([]int64, 0, len(a.Transports))
		for _, ref := range a.Transports {
			tr, err := p.transport(ref)
			if err != nil {
				return err
			}
			ids = append(ids, tr.ID)
		}
		if _, err := p.db.AddActivity(tripID, a.Kind, a.Label, ids...); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) transport(ref protocol.TransportRef) (*store.Transport, error) {
	tr, err := p.db.GetTransportByUID(ref.UID)
	if errors.Is(err, sql.ErrNoRows) {
		tr = &store.Transport{UID: ref.UID, InvoicingStatus: ref.InvoicingStatus}
		return tr, p.db.CreateTransport(tr)
	}
	if err != nil {
		return nil, err
	}
	if ref.InvoicingStatus != "" && ref.InvoicingStatus != tr.InvoicingStatus {
		if err := p.ApplyTransportInvoicing(ref.UID, ref.InvoicingStatus); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// SetTripVehicle assigns vehicle, trailer and trucker to a trip. The
// vehicle view decoration depends on the plate, so a change is announced.
func (p *Planner) SetTripVehicle(v *protocol.TripVehicle, actor string) error {
	v.VehiclePlate, v.TrailerPlate = strings.TrimSpace(v.VehiclePlate), strings.TrimSpace(v.TrailerPlate)
	trip, err := p.db.GetTripByUID(v.TripUID)
	if err != nil {
		return err
	}
	if trip.VehiclePlate == v.VehiclePlate && trip.TrailerPlate == v.TrailerPlate && trip.TruckerName == v.TruckerName {
		return nil
	}
	if err := p.db.UpdateTripVehicle(trip.ID, v.VehiclePlate, v.TrailerPlate, v.TruckerName); err != nil {
		return err
	}
	p.emitter.EmitTripVehicleChanged(trip.ID, trip.UID, trip.VehiclePlate, v.VehiclePlate, actor)
	return nil
}

func (p *Planner) DeleteTrip(uid, reason, actor string) error {
	trip, err := p.db.GetTripByUID(uid)
	if err != nil {
		return err
	}
	if err := p.db.DeleteTrip(trip.ID); err != nil {
		return fmt.Errorf("delete trip %s: %w", uid, err)
	}
	log.Printf("planner: trip %s deleted by %s", uid, actor)
	p.emitter.EmitTripDeleted(trip.ID, trip.UID, reason, actor)
	return nil
}

// UpsertSegment creates the chartering segment or replaces its fields.
func (p *Planner) UpsertSegment(u *protocol.SegmentUpsert, actor string) (*store.Segment, error) {
	if u.SegmentUID == "" {
		return nil, fmt.Errorf("%w: segment uid is required", ErrInvalid)
	}
	var tripID int64
	if u.TripUID != "" {
		trip, err := p.db.GetTripByUID(u.TripUID)
		if err != nil {
			return nil, err
		}
		tripID = trip.ID
	}
	status, trucker := normalize(u.Status, u.TruckerStatus)
	target := cellOf(u.ResourceUID, u.Day)

	seg, err := p.db.GetSegmentByUID(u.SegmentUID)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		tail, err := p.segmentTail(target, 0)
		if err != nil {
			return nil, err
		}
		seg = &store.Segment{
			UID:           u.SegmentUID,
			TripID:        tripID,
			CarrierName:   u.CarrierName,
			Status:        status,
			TruckerStatus: trucker,
			ResourceUID:   target.ResourceUID,
			Day:           target.Day,
			Position:      tail,
		}
		if err := p.db.CreateSegment(seg); err != nil {
			return nil, err
		}
		created = true
		if u.Position != nil && *u.Position < tail {
			target.Index = *u.Position
			if _, err := p.db.MoveSegment(seg.ID, target, actor); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, err
	default:
		seg.TripID = tripID
		seg.CarrierName = u.CarrierName
		seg.Status, seg.TruckerStatus = status, trucker
		if err := p.db.UpdateSegment(seg); err != nil {
			return nil, err
		}
		at := seg.Payload()
		if !at.SameCell(target) || (u.Position != nil && *u.Position != at.Index) {
			if u.Position != nil {
				target.Index = *u.Position
			} else if target.Index, err = p.segmentTail(target, seg.ID); err != nil {
				return nil, err
			}
			if _, err := p.db.MoveSegment(seg.ID, target, actor); err != nil {
				return nil, err
			}
		}
	}

	p.emitter.EmitSegmentSynced(seg.ID, seg.UID, created, actor)
	return p.db.GetSegment(seg.ID)
}

func (p *Planner) segmentTail(cell scheduler.CellPayload, skip int64) (int, error) {
	segs, err := p.db.ListSegments(cell.ResourceUID)
	if err != nil {
		return 0, fmt.Errorf("list segments of %s: %w", cell.ResourceUID, err)
	}
	n := 0
	for _, s := range segs {
		if s.ID != skip && s.Day == cell.Day {
			n++
		}
	}
	return n, nil
}

// UpsertResource creates or relabels a scheduler row.
func (p *Planner) UpsertResource(u *protocol.ResourceUpsert, actor string) (*store.Resource, error) {
	if u.ResourceUID == "" {
		return nil, fmt.Errorf("%w: resource uid is required", ErrInvalid)
	}
	if u.ResourceUID == scheduler.UnplannedResourceUID {
		return nil, fmt.Errorf("%w: %q is reserved for the unplanned pool", ErrInvalid, u.ResourceUID)
	}
	kind := u.Kind
	if kind == "" {
		kind = "trucker"
	}

	r, err := p.db.GetResourceByUID(u.ResourceUID)
	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r = &store.Resource{UID: u.ResourceUID, Kind: kind, Label: u.Label, LicensePlate: u.LicensePlate}
		if err := p.db.CreateResource(r); err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, err
	default:
		r.Kind, r.Label, r.LicensePlate = kind, u.Label, u.LicensePlate
		if err := p.db.UpdateResource(r); err != nil {
			return nil, err
		}
	}
	p.emitter.EmitResourceSynced(r.ID, r.UID, created, actor)
	return r, nil
}

// cellOf maps an empty resource to the unplanned pool, whose day is always empty.
func cellOf(resourceUID, day string) scheduler.CellPayload {
	if resourceUID == "" || resourceUID == scheduler.UnplannedResourceUID {
		return scheduler.UnplannedPayload()
	}
	return scheduler.CellPayload{ResourceUID: resourceUID, Day: day}
}
