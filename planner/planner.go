package planner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"tmscore/scheduler"
	"tmscore/store"
)

const rollbackActor = "system:rollback"

// MsgMoveStale refuses a gesture whose source cell is not where the item is
// stored, e.g. a board that missed an update.
const MsgMoveStale = "scheduler.moveStale"

type Planner struct {
	db      *store.DB
	emitter Emitter

	mu      sync.RWMutex
	backend Backend
}

// NewPlanner builds a planner. backend may be nil, in which case placements
// stay local.
func NewPlanner(db *store.DB, backend Backend, emitter Emitter) *Planner {
	return &Planner{db: db, backend: backend, emitter: emitter}
}

// SetBackend swaps the upstream backend; nil disables upstream sync.
func (p *Planner) SetBackend(b Backend) {
	p.mu.Lock()
	p.backend = b
	p.mu.Unlock()
}

func (p *Planner) getBackend() Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend
}

// placed is what a move needs to know about a trip or a segment.
type placed struct {
	id     int64
	uid    string
	status scheduler.TripStatus
	at     scheduler.CellPayload
}

// mover binds the generic move flow to one entity table.
type mover struct {
	entity  Entity
	load    func(id int64) (placed, error)
	persist func(id int64, cell scheduler.CellPayload, actor string) (scheduler.CellPayload, error)
	patch   func(b Backend, ctx context.Context, uid string, cell scheduler.CellPayload) error
	emit    func(it placed, from, to scheduler.CellPayload, actor string)
}

// MoveTrip validates and applies a drag of a trip.
func (p *Planner) MoveTrip(ctx context.Context, req MoveRequest) (MoveOutcome, error) {
	return p.move(ctx, p.tripMover(), req)
}

// MoveSegment validates and applies a drag of a chartering segment.
func (p *Planner) MoveSegment(ctx context.Context, req MoveRequest) (MoveOutcome, error) {
	return p.move(ctx, p.segmentMover(), req)
}

// CheckMove runs both checks without persisting anything.
func (p *Planner) CheckMove(entity Entity, req MoveRequest) (MoveOutcome, error) {
	m := p.tripMover()
	if entity == EntitySegment {
		m = p.segmentMover()
	}
	if !scheduler.IsDroppable(req.Source, req.Target) {
		return MoveOutcome{}, nil
	}
	it, err := m.load(req.ID)
	if err != nil {
		return MoveOutcome{Droppable: true}, err
	}
	return evaluate(it, req), nil
}

// evaluate checks a droppable gesture against the stored placement. The
// business rule always sees the stored cell as the source, never the one
// the client claims.
func evaluate(it placed, req MoveRequest) MoveOutcome {
	out := MoveOutcome{
		Droppable: true,
		From:      it.at,
		To:        scheduler.ResolvePayload(req.Target),
	}
	if !scheduler.ResolvePayload(req.Source).SameCell(it.at) {
		out.Verdict = scheduler.MoveVerdict{Result: false, Message: MsgMoveStale}
		return out
	}
	out.Verdict = scheduler.CanMove(it.status, it.at, out.To)
	return out
}

func (p *Planner) move(ctx context.Context, m mover, req MoveRequest) (MoveOutcome, error) {
	if !scheduler.IsDroppable(req.Source, req.Target) {
		return MoveOutcome{}, nil
	}

	it, err := m.load(req.ID)
	if err != nil {
		return MoveOutcome{Droppable: true}, err
	}

	out := evaluate(it, req)
	target := out.To
	if !out.Verdict.Result {
		log.Printf("planner: %s %s move refused: %s", m.entity, it.uid, out.Verdict.Message)
		p.emitter.EmitMoveRejected(m.entity, it.id, it.uid, out.From, target, out.Verdict.Message, req.Actor)
		return out, nil
	}

	previous, err := m.persist(it.id, target, req.Actor)
	if err != nil {
		return out, err
	}

	if b := p.getBackend(); b != nil {
		if err := m.patch(b, ctx, it.uid, target); err != nil {
			log.Printf("planner: %s %s upstream placement failed, rolling back: %v", m.entity, it.uid, err)
			if _, rbErr := m.persist(it.id, previous, rollbackActor); rbErr != nil {
				log.Printf("planner: %s %s rollback: %v", m.entity, it.uid, rbErr)
			}
			return out, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	out.From = previous
	m.emit(it, previous, target, req.Actor)
	return out, nil
}

func (p *Planner) tripMover() mover {
	return mover{
		entity: EntityTrip,
		load: func(id int64) (placed, error) {
			t, err := p.db.GetTrip(id)
			if err != nil {
				return placed{}, err
			}
			status, _ := scheduler.ParseTripStatus(t.Status)
			return placed{id: t.ID, uid: t.UID, status: status, at: t.Payload()}, nil
		},
		persist: p.db.MoveTrip,
		patch: func(b Backend, ctx context.Context, uid string, cell scheduler.CellPayload) error {
			return b.PatchTripPlacement(ctx, uid, cell)
		},
		emit: func(it placed, from, to scheduler.CellPayload, actor string) {
			p.emitter.EmitTripMoved(it.id, it.uid, from, to, actor)
		},
	}
}

func (p *Planner) segmentMover() mover {
	return mover{
		entity: EntitySegment,
		load: func(id int64) (placed, error) {
			s, err := p.db.GetSegment(id)
			if err != nil {
				return placed{}, err
			}
			status, _ := scheduler.ParseTripStatus(s.Status)
			return placed{id: s.ID, uid: s.UID, status: status, at: s.Payload()}, nil
		},
		persist: p.db.MoveSegment,
		patch: func(b Backend, ctx context.Context, uid string, cell scheduler.CellPayload) error {
			return b.PatchSegmentPlacement(ctx, uid, cell)
		},
		emit: func(it placed, from, to scheduler.CellPayload, actor string) {
			p.emitter.EmitSegmentMoved(it.id, it.uid, from, to, actor)
		},
	}
}
