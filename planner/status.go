package planner

import (
	"fmt"
	"log"

	"tmscore/scheduler"
)

// normalize applies the unstarted/unassigned defaults. Unknown values are
// kept as sent since the backend is authoritative for statuses.
func normalize(status, truckerStatus string) (string, string) {
	st, ok := scheduler.ParseTripStatus(status)
	if ok {
		status = string(st)
	} else {
		log.Printf("planner: unknown trip status %q applied as-is", status)
	}
	tk, ok := scheduler.ParseTruckerStatus(truckerStatus)
	if ok {
		truckerStatus = string(tk)
	} else {
		log.Printf("planner: unknown trucker status %q applied as-is", truckerStatus)
	}
	return status, truckerStatus
}

// ApplyTripStatus records a status update for the trip. Moves are the only
// thing the scheduler restricts; statuses are applied as received.
func (p *Planner) ApplyTripStatus(uid, status, truckerStatus, detail string) error {
	trip, err := p.db.GetTripByUID(uid)
	if err != nil {
		return err
	}
	status, truckerStatus = normalize(status, truckerStatus)
	if trip.Status == status && trip.TruckerStatus == truckerStatus {
		return nil
	}
	if err := p.db.UpdateTripStatus(trip.ID, status, truckerStatus); err != nil {
		return err
	}
	p.emitter.EmitTripStatusChanged(trip.ID, trip.UID, trip.Status, status, trip.TruckerStatus, truckerStatus, detail)
	return nil
}

// ApplySegmentStatus records a status update for a chartering segment.
func (p *Planner) ApplySegmentStatus(uid, status, truckerStatus string) error {
	seg, err := p.db.GetSegmentByUID(uid)
	if err != nil {
		return err
	}
	status, truckerStatus = normalize(status, truckerStatus)
	if seg.Status == status && seg.TruckerStatus == truckerStatus {
		return nil
	}
	if err := p.db.UpdateSegmentStatus(seg.ID, status, truckerStatus); err != nil {
		return err
	}
	p.emitter.EmitSegmentStatusChanged(seg.ID, seg.UID, seg.Status, status, seg.TruckerStatus, truckerStatus)
	return nil
}

// ApplyTransportInvoicing records a transport's invoicing status. Every trip
// with an activity on the transport is reported so it can be re-decorated.
func (p *Planner) ApplyTransportInvoicing(uid, invoicingStatus string) error {
	tr, err := p.db.GetTransportByUID(uid)
	if err != nil {
		return err
	}
	if tr.InvoicingStatus == invoicingStatus {
		return nil
	}
	if err := p.db.UpdateTransportInvoicing(tr.ID, invoicingStatus); err != nil {
		return err
	}
	tripIDs, err := p.db.ListTripIDsByTransport(tr.ID)
	if err != nil {
		return fmt.Errorf("trips of transport %s: %w", uid, err)
	}
	p.emitter.EmitTransportInvoiced(tr.ID, tr.UID, tr.InvoicingStatus, invoicingStatus, tripIDs)
	return nil
}
