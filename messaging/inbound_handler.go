package messaging

import (
	"log"

	"tmscore/planner"
	"tmscore/protocol"
	"tmscore/store"
)

// Applier applies status updates and master data pushed by the TMS backend.
// *planner.Planner satisfies it.
type Applier interface {
	ApplyTripStatus(uid, status, truckerStatus, detail string) error
	ApplySegmentStatus(uid, status, truckerStatus string) error
	ApplyTransportInvoicing(uid, invoicingStatus string) error
	UpsertTrip(u *protocol.TripUpsert, actor string) (*store.Trip, error)
	SetTripVehicle(v *protocol.TripVehicle, actor string) error
	DeleteTrip(uid, reason, actor string) error
	UpsertSegment(u *protocol.SegmentUpsert, actor string) (*store.Segment, error)
	UpsertResource(u *protocol.ResourceUpsert, actor string) (*store.Resource, error)
}

var _ Applier = (*planner.Planner)(nil)

// InboundHandler handles protocol messages on the status topic and hands
// them to the planner. Outbound event types are ignored.
type InboundHandler struct {
	protocol.NoOpHandler

	applier Applier
}

func NewInboundHandler(applier Applier) *InboundHandler {
	return &InboundHandler{applier: applier}
}

func (h *InboundHandler) HandleTripStatus(env *protocol.Envelope, p *protocol.TripStatus) {
	if p.TripUID == "" {
		log.Printf("inbound: trip status %s without trip uid", env.ID)
		return
	}
	if err := h.applier.ApplyTripStatus(p.TripUID, p.Status, p.TruckerStatus, p.Detail); err != nil {
		log.Printf("inbound: trip %s status from %s: %v", p.TripUID, env.Src.Station, err)
	}
}

func (h *InboundHandler) HandleSegmentStatus(env *protocol.Envelope, p *protocol.SegmentStatus) {
	if p.SegmentUID == "" {
		log.Printf("inbound: segment status %s without segment uid", env.ID)
		return
	}
	if err := h.applier.ApplySegmentStatus(p.SegmentUID, p.Status, p.TruckerStatus); err != nil {
		log.Printf("inbound: segment %s status from %s: %v", p.SegmentUID, env.Src.Station, err)
	}
}

func (h *InboundHandler) HandleTripInvoicing(env *protocol.Envelope, p *protocol.TripInvoicing) {
	if p.TransportUID == "" {
		log.Printf("inbound: invoicing %s without transport uid", env.ID)
		return
	}
	if err := h.applier.ApplyTransportInvoicing(p.TransportUID, p.InvoicingStatus); err != nil {
		log.Printf("inbound: transport %s invoicing: %v", p.TransportUID, err)
	}
}

func (h *InboundHandler) HandleTripUpsert(env *protocol.Envelope, p *protocol.TripUpsert) {
	if p.TripUID == "" {
		log.Printf("inbound: trip upsert %s without trip uid", env.ID)
		return
	}
	if _, err := h.applier.UpsertTrip(p, planner.SyncActor); err != nil {
		log.Printf("inbound: trip %s upsert from %s: %v", p.TripUID, env.Src.Station, err)
	}
}

func (h *InboundHandler) HandleTripVehicle(env *protocol.Envelope, p *protocol.TripVehicle) {
	if p.TripUID == "" {
		log.Printf("inbound: trip vehicle %s without trip uid", env.ID)
		return
	}
	if err := h.applier.SetTripVehicle(p, planner.SyncActor); err != nil {
		log.Printf("inbound: trip %s vehicle: %v", p.TripUID, err)
	}
}

func (h *InboundHandler) HandleTripDelete(env *protocol.Envelope, p *protocol.TripDelete) {
	if p.TripUID == "" {
		log.Printf("inbound: trip delete %s without trip uid", env.ID)
		return
	}
	if err := h.applier.DeleteTrip(p.TripUID, p.Reason, planner.SyncActor); err != nil {
		log.Printf("inbound: trip %s delete: %v", p.TripUID, err)
	}
}

func (h *InboundHandler) HandleSegmentUpsert(env *protocol.Envelope, p *protocol.SegmentUpsert) {
	if p.SegmentUID == "" {
		log.Printf("inbound: segment upsert %s without segment uid", env.ID)
		return
	}
	if _, err := h.applier.UpsertSegment(p, planner.SyncActor); err != nil {
		log.Printf("inbound: segment %s upsert: %v", p.SegmentUID, err)
	}
}

func (h *InboundHandler) HandleResourceUpsert(env *protocol.Envelope, p *protocol.ResourceUpsert) {
	if p.ResourceUID == "" {
		log.Printf("inbound: resource upsert %s without resource uid", env.ID)
		return
	}
	if _, err := h.applier.UpsertResource(p, planner.SyncActor); err != nil {
		log.Printf("inbound: resource %s upsert: %v", p.ResourceUID, err)
	}
}
