package www

import (
	"net/http"

	"tmscore/protocol"
	"tmscore/store"
)

// Operator counterparts of the trip.upsert, trip.vehicle, trip.delete,
// segment.upsert and resource.upsert bus messages.

func (h *Handlers) apiUpsertTrip(w http.ResponseWriter, r *http.Request) {
	var req protocol.TripUpsert
	if !h.decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.engine.Planner().UpsertTrip(&req, getUsername(r))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

type vehicleRequest struct {
	VehiclePlate string `json:"vehicle_plate"`
	TrailerPlate string `json:"trailer_plate"`
	TruckerName  string `json:"trucker_name"`
}

func (h *Handlers) apiSetTripVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req vehicleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	trip, err := h.engine.DB().GetTrip(id)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	err = h.engine.Planner().SetTripVehicle(&protocol.TripVehicle{
		TripUID:      trip.UID,
		VehiclePlate: req.VehiclePlate,
		TrailerPlate: req.TrailerPlate,
		TruckerName:  req.TruckerName,
	}, getUsername(r))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if trip, err = h.engine.DB().GetTrip(id); err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, trip)
}

func (h *Handlers) apiDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	trip, err := h.engine.DB().GetTrip(id)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if err := h.engine.Planner().DeleteTrip(trip.UID, r.URL.Query().Get("reason"), getUsername(r)); err != nil {
		h.jsonStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) apiUpsertSegment(w http.ResponseWriter, r *http.Request) {
	var req protocol.SegmentUpsert
	if !h.decodeJSON(w, r, &req) {
		return
	}
	seg, err := h.engine.Planner().UpsertSegment(&req, getUsername(r))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, seg)
}

func (h *Handlers) apiUpsertResource(w http.ResponseWriter, r *http.Request) {
	var req protocol.ResourceUpsert
	if !h.decodeJSON(w, r, &req) {
		return
	}
	res, err := h.engine.Planner().UpsertResource(&req, getUsername(r))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, res)
}

func (h *Handlers) apiTripAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.engine.DB().ListEntityAudit("trip", id)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if entries == nil {
		entries = []*store.AuditEntry{}
	}
	h.jsonOK(w, entries)
}
