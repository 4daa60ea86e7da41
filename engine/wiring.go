package engine

import (
	"context"
	"fmt"

	"tmscore/protocol"
	"tmscore/scheduler"
	"tmscore/tripstate"
)

func (e *Engine) wireEventHandlers() {
	// Moves: audit, drop cached decorations, announce on the events topic
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TripMovedEvent)
		e.logFn("engine: trip %s moved %s -> %s by %s", ev.TripUID, cell(ev.From), cell(ev.To), ev.Actor)
		e.audit("trip", ev.TripID, "moved", cell(ev.From), cell(ev.To), ev.Actor)
		e.tripState.InvalidateTrip(context.Background(), ev.TripID)
		e.enqueue(protocol.TypeTripMoved, &protocol.TripMoved{
			TripUID: ev.TripUID, From: ev.From, To: ev.To, Actor: ev.Actor,
		})
	}, EventTripMoved)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SegmentMovedEvent)
		e.logFn("engine: segment %s moved %s -> %s by %s", ev.SegmentUID, cell(ev.From), cell(ev.To), ev.Actor)
		e.audit("segment", ev.SegmentID, "moved", cell(ev.From), cell(ev.To), ev.Actor)
		e.tripState.InvalidateSegment(context.Background(), ev.SegmentID)
		e.enqueue(protocol.TypeSegmentMoved, &protocol.SegmentMoved{
			SegmentUID: ev.SegmentUID, From: ev.From, To: ev.To, Actor: ev.Actor,
		})
	}, EventSegmentMoved)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MoveRejectedEvent)
		e.audit(ev.EntityType, ev.EntityID, "move_rejected", cell(ev.From), cell(ev.To)+" "+ev.Message, ev.Actor)
		if ev.EntityType == "segment" {
			e.enqueue(protocol.TypeSegmentMoveRejected, &protocol.SegmentMoveRejected{
				SegmentUID: ev.EntityUID, From: ev.From, To: ev.To, Message: ev.Message, Actor: ev.Actor,
			})
			return
		}
		e.enqueue(protocol.TypeTripMoveRejected, &protocol.TripMoveRejected{
			TripUID: ev.EntityUID, From: ev.From, To: ev.To, Message: ev.Message, Actor: ev.Actor,
		})
	}, EventMoveRejected)

	// Status changes: audit, re-decorate, announce the new decoration
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TripStatusChangedEvent)
		e.logFn("engine: trip %s status %s/%s -> %s/%s", ev.TripUID, ev.OldStatus, ev.OldTrucker, ev.NewStatus, ev.NewTrucker)
		e.audit("trip", ev.TripID, "status", ev.OldStatus+"/"+ev.OldTrucker, ev.NewStatus+"/"+ev.NewTrucker, "system")
		e.redecorateTrip(ev.TripID, ev.TripUID, scheduler.ViewTrucker)
	}, EventTripStatusChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SegmentStatusChangedEvent)
		e.audit("segment", ev.SegmentID, "status", ev.OldStatus+"/"+ev.OldTrucker, ev.NewStatus+"/"+ev.NewTrucker, "system")
		e.redecorateSegment(ev.SegmentID, ev.SegmentUID)
	}, EventSegmentStatusChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TransportInvoicedEvent)
		e.audit("transport", ev.TransportID, "invoicing", ev.OldStatus, ev.NewStatus, "system")
		for _, id := range ev.TripIDs {
			trip, err := e.db.GetTrip(id)
			if err != nil {
				e.logFn("engine: trip %d of transport %s: %v", id, ev.TransportUID, err)
				continue
			}
			e.redecorateTrip(trip.ID, trip.UID, scheduler.ViewTrucker)
		}
	}, EventTransportInvoiced)

	// Master data from the TMS
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SyncedEvent)
		e.audit("trip", ev.EntityID, syncAction(ev.Created), "", ev.EntityUID, ev.Actor)
		e.redecorateTrip(ev.EntityID, ev.EntityUID, scheduler.ViewTrucker)
	}, EventTripSynced)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TripVehicleChangedEvent)
		e.logFn("engine: trip %s vehicle %q -> %q by %s", ev.TripUID, ev.OldPlate, ev.NewPlate, ev.Actor)
		e.audit("trip", ev.TripID, "vehicle", ev.OldPlate, ev.NewPlate, ev.Actor)
		e.redecorateTrip(ev.TripID, ev.TripUID, scheduler.ViewVehicle)
	}, EventTripVehicleChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TripDeletedEvent)
		e.logFn("engine: trip %s deleted by %s", ev.TripUID, ev.Actor)
		e.audit("trip", ev.TripID, "deleted", ev.TripUID, ev.Reason, ev.Actor)
		e.tripState.InvalidateTrip(context.Background(), ev.TripID)
	}, EventTripDeleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SyncedEvent)
		e.audit("segment", ev.EntityID, syncAction(ev.Created), "", ev.EntityUID, ev.Actor)
		e.redecorateSegment(ev.EntityID, ev.EntityUID)
	}, EventSegmentSynced)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SyncedEvent)
		e.audit("resource", ev.EntityID, syncAction(ev.Created), "", ev.EntityUID, ev.Actor)
	}, EventResourceSynced)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s", ev.Detail)
	}, EventBackendConnected, EventBackendDisconnected, EventMessagingConnected, EventMessagingDisconnected)
}

// redecorateTrip drops every cached view of the trip and announces the
// decoration for view computed from SQL.
func (e *Engine) redecorateTrip(id int64, uid string, view scheduler.ViewMode) {
	ctx := context.Background()
	e.tripState.InvalidateTrip(ctx, id)
	d, err := e.tripState.TripDecoration(ctx, id, view)
	if err != nil {
		e.logFn("engine: decorate trip %d: %v", id, err)
		return
	}
	e.enqueueDecoration("trip", uid, view, d)
}

func (e *Engine) redecorateSegment(id int64, uid string) {
	ctx := context.Background()
	e.tripState.InvalidateSegment(ctx, id)
	d, err := e.tripState.SegmentDecoration(ctx, id, scheduler.ViewChartering)
	if err != nil {
		e.logFn("engine: decorate segment %d: %v", id, err)
		return
	}
	e.enqueueDecoration("segment", uid, scheduler.ViewChartering, d)
}

func syncAction(created bool) string {
	if created {
		return "created"
	}
	return "updated"
}

func (e *Engine) enqueueDecoration(entity, uid string, view scheduler.ViewMode, d tripstate.CachedDecoration) {
	e.enqueue(protocol.TypeDecorationChanged, &protocol.DecorationChanged{
		EntityType: entity,
		EntityUID:  uid,
		View:       view,
		StatusKey:  d.Key,
		Decoration: d.Decoration,
	})
}

func (e *Engine) audit(entityType string, id int64, action, oldValue, newValue, actor string) {
	if err := e.db.AppendAudit(entityType, id, action, oldValue, newValue, actor); err != nil {
		e.logFn("engine: audit %s %d %s: %v", entityType, id, action, err)
	}
}

// enqueue wraps payload in an envelope broadcast to TMS subscribers and
// leaves it in the outbox for the drainer.
func (e *Engine) enqueue(msgType string, payload any) {
	topic := e.cfg.Messaging.EventsTopic
	if topic == "" {
		return
	}
	src := protocol.Address{Role: protocol.RoleCore, Station: e.cfg.Messaging.StationID}
	dst := protocol.Address{Role: protocol.RoleTMS, Station: protocol.BroadcastStation}
	env, err := protocol.NewEnvelope(msgType, src, dst, payload)
	if err != nil {
		e.logFn("engine: build %s envelope: %v", msgType, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode %s envelope: %v", msgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(topic, data, msgType, protocol.BroadcastStation); err != nil {
		e.logFn("engine: enqueue %s: %v", msgType, err)
	}
}

func cell(p scheduler.CellPayload) string {
	if p.IsUnplanned() {
		return fmt.Sprintf("unplanned#%d", p.Index)
	}
	return fmt.Sprintf("%s/%s#%d", p.ResourceUID, p.Day, p.Index)
}
