package www

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"tmscore/planner"
	"tmscore/report"
	"tmscore/scheduler"
	"tmscore/store"
)

type droppableRequest struct {
	Source scheduler.DragContext `json:"source"`
	Target scheduler.DragContext `json:"target"`
}

func (h *Handlers) apiDroppable(w http.ResponseWriter, r *http.Request) {
	var req droppableRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.jsonOK(w, map[string]bool{"droppable": scheduler.IsDroppable(req.Source, req.Target)})
}

type checkRequest struct {
	Entity planner.Entity `json:"entity"`
	planner.MoveRequest
}

func (h *Handlers) apiCheckMove(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	entity := planner.EntityTrip
	if req.Entity == planner.EntitySegment {
		entity = planner.EntitySegment
	}
	out, err := h.engine.Planner().CheckMove(entity, req.MoveRequest)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	h.jsonOK(w, out)
}

type moveResponse struct {
	Result  bool                  `json:"result"`
	Message string                `json:"message,omitempty"`
	From    scheduler.CellPayload `json:"from"`
	To      scheduler.CellPayload `json:"to"`
}

func (h *Handlers) apiMoveTrip(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, h.engine.Planner().MoveTrip)
}

func (h *Handlers) apiMoveSegment(w http.ResponseWriter, r *http.Request) {
	h.handleMove(w, r, h.engine.Planner().MoveSegment)
}

type moveFunc func(ctx context.Context, req planner.MoveRequest) (planner.MoveOutcome, error)

// handleMove answers 204 for gestures that are not droppable, 200 with the
// verdict otherwise.
func (h *Handlers) handleMove(w http.ResponseWriter, r *http.Request, move moveFunc) {
	var req planner.MoveRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Actor = getUsername(r)

	out, err := move(r.Context(), req)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}
	if !out.Droppable {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.jsonOK(w, moveResponse{
		Result:  out.Verdict.Result,
		Message: out.Verdict.Message,
		From:    out.From,
		To:      out.To,
	})
}

func (h *Handlers) apiExportPlanning(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TripFilter{
		ResourceUID: q.Get("resource"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Limit:       h.engine.AppConfig().Scheduler.BoardLimit,
	}
	view := h.view(r)
	board, err := h.engine.TripState().TripBoard(r.Context(), filter, view)
	if err != nil {
		h.jsonStoreError(w, err)
		return
	}

	filename := fmt.Sprintf("planning-%s-%s.xlsx", view, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := report.WritePlanning(w, report.RowsFromBoard(board)); err != nil {
		log.Printf("export: planning: %v", err)
	}
}
