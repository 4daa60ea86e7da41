package protocol

import (
	"encoding/json"
	"log"
)

// FilterFunc returns true if the message should be processed.
type FilterFunc func(hdr *RawHeader) bool

// MessageHandler defines callbacks for all protocol message types.
// Embed NoOpHandler and override only the methods you need.
type MessageHandler interface {
	// TMS -> Core
	HandleTripStatus(env *Envelope, p *TripStatus)
	HandleTripInvoicing(env *Envelope, p *TripInvoicing)
	HandleSegmentStatus(env *Envelope, p *SegmentStatus)
	HandleTripUpsert(env *Envelope, p *TripUpsert)
	HandleTripVehicle(env *Envelope, p *TripVehicle)
	HandleTripDelete(env *Envelope, p *TripDelete)
	HandleSegmentUpsert(env *Envelope, p *SegmentUpsert)
	HandleResourceUpsert(env *Envelope, p *ResourceUpsert)

	// Core -> subscribers
	HandleTripMoved(env *Envelope, p *TripMoved)
	HandleTripMoveRejected(env *Envelope, p *TripMoveRejected)
	HandleSegmentMoved(env *Envelope, p *SegmentMoved)
	HandleSegmentMoveRejected(env *Envelope, p *SegmentMoveRejected)
	HandleDecorationChanged(env *Envelope, p *DecorationChanged)
}

// Ingestor performs two-phase decode and dispatches to a MessageHandler.
type Ingestor struct {
	handler MessageHandler
	filter  FilterFunc
}

func NewIngestor(handler MessageHandler, filter FilterFunc) *Ingestor {
	return &Ingestor{
		handler: handler,
		filter:  filter,
	}
}

// HandleRaw is the entry point for raw message bytes from the messaging layer.
func (ing *Ingestor) HandleRaw(data []byte) {
	// Phase 1: decode routing header only
	var hdr RawHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		log.Printf("protocol: header decode error: %v", err)
		return
	}

	if IsExpiredHeader(&hdr) {
		log.Printf("protocol: dropping expired message %s (type=%s)", hdr.ID, hdr.Type)
		return
	}

	if ing.filter != nil && !ing.filter(&hdr) {
		return
	}

	// Phase 2: full envelope decode
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("protocol: envelope decode error: %v", err)
		return
	}

	switch env.Type {
	case TypeTripStatus:
		decodeAndCall(ing.handler.HandleTripStatus, &env)
	case TypeTripInvoicing:
		decodeAndCall(ing.handler.HandleTripInvoicing, &env)
	case TypeSegmentStatus:
		decodeAndCall(ing.handler.HandleSegmentStatus, &env)
	case TypeTripUpsert:
		decodeAndCall(ing.handler.HandleTripUpsert, &env)
	case TypeTripVehicle:
		decodeAndCall(ing.handler.HandleTripVehicle, &env)
	case TypeTripDelete:
		decodeAndCall(ing.handler.HandleTripDelete, &env)
	case TypeSegmentUpsert:
		decodeAndCall(ing.handler.HandleSegmentUpsert, &env)
	case TypeResourceUpsert:
		decodeAndCall(ing.handler.HandleResourceUpsert, &env)
	case TypeTripMoved:
		decodeAndCall(ing.handler.HandleTripMoved, &env)
	case TypeTripMoveRejected:
		decodeAndCall(ing.handler.HandleTripMoveRejected, &env)
	case TypeSegmentMoved:
		decodeAndCall(ing.handler.HandleSegmentMoved, &env)
	case TypeSegmentMoveRejected:
		decodeAndCall(ing.handler.HandleSegmentMoveRejected, &env)
	case TypeDecorationChanged:
		decodeAndCall(ing.handler.HandleDecorationChanged, &env)
	default:
		log.Printf("protocol: unknown message type: %s", env.Type)
	}
}

// decodeAndCall unmarshals the payload and calls the handler method.
func decodeAndCall[T any](fn func(*Envelope, *T), env *Envelope) {
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Printf("protocol: payload decode error for %s: %v", env.Type, err)
		return
	}
	fn(env, &p)
}
