package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"tmscore/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

// EventHub fans SSE events out to every connected browser. Slow clients
// drop events rather than block the hub.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

// BroadcastJSON marshals v as the event data.
func (h *EventHub) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse: marshal %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(data))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.TripMovedEvent)
		h.BroadcastJSON("trip-update", map[string]any{"type": "moved", "trip_id": ev.TripID, "trip_uid": ev.TripUID, "from": ev.From, "to": ev.To})
	}, engine.EventTripMoved)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.TripStatusChangedEvent)
		h.BroadcastJSON("trip-update", map[string]any{"type": "status_changed", "trip_id": ev.TripID, "status": ev.NewStatus, "trucker_status": ev.NewTrucker})
	}, engine.EventTripStatusChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.TransportInvoicedEvent)
		h.BroadcastJSON("trip-update", map[string]any{"type": "invoicing_changed", "trip_ids": ev.TripIDs, "invoicing_status": ev.NewStatus})
	}, engine.EventTransportInvoiced)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.MoveRejectedEvent)
		event := "trip-update"
		if ev.EntityType == "segment" {
			event = "segment-update"
		}
		h.BroadcastJSON(event, map[string]any{"type": "move_rejected", "id": ev.EntityID, "message": ev.Message})
	}, engine.EventMoveRejected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SegmentMovedEvent)
		h.BroadcastJSON("segment-update", map[string]any{"type": "moved", "segment_id": ev.SegmentID, "from": ev.From, "to": ev.To})
	}, engine.EventSegmentMoved)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SegmentStatusChangedEvent)
		h.BroadcastJSON("segment-update", map[string]any{"type": "status_changed", "segment_id": ev.SegmentID, "status": ev.NewStatus, "trucker_status": ev.NewTrucker})
	}, engine.EventSegmentStatusChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SyncedEvent)
		h.BroadcastJSON("trip-update", map[string]any{"type": syncType(ev.Created), "trip_id": ev.EntityID, "trip_uid": ev.EntityUID})
	}, engine.EventTripSynced)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.TripVehicleChangedEvent)
		h.BroadcastJSON("trip-update", map[string]any{"type": "vehicle_changed", "trip_id": ev.TripID, "vehicle_plate": ev.NewPlate})
	}, engine.EventTripVehicleChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.TripDeletedEvent)
		h.BroadcastJSON("trip-update", map[string]any{"type": "deleted", "trip_id": ev.TripID, "trip_uid": ev.TripUID})
	}, engine.EventTripDeleted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SyncedEvent)
		h.BroadcastJSON("segment-update", map[string]any{"type": syncType(ev.Created), "segment_id": ev.EntityID, "segment_uid": ev.EntityUID})
	}, engine.EventSegmentSynced)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SyncedEvent)
		h.BroadcastJSON("resource-update", map[string]any{"type": syncType(ev.Created), "resource_uid": ev.EntityUID})
	}, engine.EventResourceSynced)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"backend":"connected"}`)
	}, engine.EventBackendConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"backend":"disconnected"}`)
	}, engine.EventBackendDisconnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

func syncType(created bool) string {
	if created {
		return "created"
	}
	return "updated"
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
