package www

import (
	"net/http"

	"tmscore/scheduler"
	"tmscore/store"
)

type healthResponse struct {
	Status            string `json:"status"`
	BackendConfigured bool   `json:"backend_configured"`
	BackendConnected  bool   `json:"backend_connected"`
	MessagingUp       bool   `json:"messaging_connected"`
	SSEClients        int    `json:"sse_clients"`
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	h.jsonOK(w, healthResponse{
		Status:            "ok",
		BackendConfigured: st.BackendConfigured,
		BackendConnected:  st.BackendConnected,
		MessagingUp:       st.MessagingUp,
		SSEClients:        h.eventHub.ClientCount(),
	})
}

func (h *Handlers) apiDecorations(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, scheduler.Decorations())
}

// view reads ?view=, falling back to the configured default.
func (h *Handlers) view(r *http.Request) scheduler.ViewMode {
	v := r.URL.Query().Get("view")
	if v == "" {
		v = h.engine.AppConfig().Scheduler.DefaultView
	}
	return scheduler.ParseViewMode(v)
}

func (h *Handlers) apiListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TripFilter{
		ResourceUID: q.Get("resource"),
		Status:      q.Get("status"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Limit:       queryInt(r, "limit", h.engine.AppConfig().Scheduler.BoardLimit),
	}
	if day := q.Get("day"); day != "" {
		filter.From, filter.To = day, day
	}
	board, err := h.engine.TripState().TripBoard(r.Context(), filter, h.view(r))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, board)
}

type tripDetail struct {
	*store.Trip
	Activities []*store.Activity `json:"activities"`
}

func (h *Handlers) apiGetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	trip, err := h.engine.DB().GetTrip(id)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	activities, err := h.engine.DB().ListTripActivities(id)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, tripDetail{Trip: trip, Activities: activities})
}

func (h *Handlers) apiTripDecoration(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.engine.TripState().TripDecoration(r.Context(), id, h.view(r))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiTripHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.engine.DB().GetTrip(id); err != nil {
		h.jsonStoreError(w, err)
		return
	}
	history, err := h.engine.DB().ListMoveHistory("trip", id, queryInt(r, "limit", h.engine.AppConfig().Scheduler.HistoryLimit))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if history == nil {
		history = []*store.MoveRecord{}
	}
	h.jsonOK(w, history)
}

func (h *Handlers) apiListSegments(w http.ResponseWriter, r *http.Request) {
	view := scheduler.ViewMode(r.URL.Query().Get("view"))
	board, err := h.engine.TripState().SegmentBoard(r.Context(), r.URL.Query().Get("resource"), view)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, board)
}

func (h *Handlers) apiSegmentDecoration(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view := scheduler.ViewChartering
	if v := r.URL.Query().Get("view"); v != "" {
		view = scheduler.ParseViewMode(v)
	}
	d, err := h.engine.TripState().SegmentDecoration(r.Context(), id, view)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.engine.DB().ListResources(r.URL.Query().Get("kind"))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if resources == nil {
		resources = []*store.Resource{}
	}
	h.jsonOK(w, resources)
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListAuditLog(queryInt(r, "limit", 100))
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if entries == nil {
		entries = []*store.AuditEntry{}
	}
	h.jsonOK(w, entries)
}
