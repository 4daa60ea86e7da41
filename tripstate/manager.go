package tripstate

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"tmscore/scheduler"
	"tmscore/store"
)

// Manager resolves decorations write-through: SQL is the source of truth,
// Redis keeps the resolved decoration per (entity, view). A nil or
// unreachable Redis only costs a recomputation. Write-backs carry the
// generation read before SQL, so one racing an invalidation is dropped.
type Manager struct {
	db    *store.DB
	redis *RedisStore
}

func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// TripDecoration reads the trip's decoration from Redis, falls back to SQL.
func (m *Manager) TripDecoration(ctx context.Context, tripID int64, view scheduler.ViewMode) (CachedDecoration, error) {
	view = scheduler.ParseViewMode(string(view))
	if d := m.cached(ctx, EntityTrip, tripID, view); d != nil {
		return *d, nil
	}
	return m.decorateTrip(ctx, tripID, view)
}

// SegmentDecoration reads the segment's decoration from Redis, falls back to SQL.
func (m *Manager) SegmentDecoration(ctx context.Context, segmentID int64, view scheduler.ViewMode) (CachedDecoration, error) {
	view = scheduler.ParseViewMode(string(view))
	if d := m.cached(ctx, EntitySegment, segmentID, view); d != nil {
		return *d, nil
	}
	return m.decorateSegment(ctx, segmentID, view)
}

// TripBoard lists trips with their decorations for the scheduler grid.
func (m *Manager) TripBoard(ctx context.Context, filter store.TripFilter, view scheduler.ViewMode) ([]*BoardTrip, error) {
	view = scheduler.ParseViewMode(string(view))
	trips, err := m.db.ListTrips(filter)
	if err != nil {
		return nil, err
	}
	board := make([]*BoardTrip, 0, len(trips))
	for _, t := range trips {
		d := m.cached(ctx, EntityTrip, t.ID, view)
		if d == nil {
			resolved, err := m.decorateTrip(ctx, t.ID, view)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return nil, err
			}
			d = &resolved
		}
		board = append(board, &BoardTrip{Trip: t, StatusKey: d.Key, Decoration: d.Decoration})
	}
	return board, nil
}

// SegmentBoard lists the segments of a carrier row, or all of them, decorated.
func (m *Manager) SegmentBoard(ctx context.Context, resourceUID string, view scheduler.ViewMode) ([]*BoardSegment, error) {
	if view == "" {
		view = scheduler.ViewChartering
	}
	view = scheduler.ParseViewMode(string(view))
	segs, err := m.db.ListSegments(resourceUID)
	if err != nil {
		return nil, err
	}
	board := make([]*BoardSegment, 0, len(segs))
	for _, s := range segs {
		d := m.cached(ctx, EntitySegment, s.ID, view)
		if d == nil {
			resolved, err := m.decorateSegment(ctx, s.ID, view)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return nil, err
			}
			d = &resolved
		}
		board = append(board, &BoardSegment{Segment: s, StatusKey: d.Key, Decoration: d.Decoration})
	}
	return board, nil
}

func (m *Manager) InvalidateTrip(ctx context.Context, tripID int64) {
	m.invalidate(ctx, EntityTrip, tripID)
}

func (m *Manager) InvalidateSegment(ctx context.Context, segmentID int64) {
	m.invalidate(ctx, EntitySegment, segmentID)
}

// SyncRedisFromSQL drops every cached decoration and warms the trucker view
// of trips and the chartering view of segments. Called on startup.
func (m *Manager) SyncRedisFromSQL(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	if err := m.redis.FlushAll(ctx); err != nil {
		return err
	}

	trips, err := m.db.ListTrips(store.TripFilter{})
	if err != nil {
		return err
	}
	for _, t := range trips {
		if _, err := m.decorateTrip(ctx, t.ID, scheduler.ViewTrucker); err != nil {
			log.Printf("tripstate: sync trip %d: %v", t.ID, err)
		}
	}
	segs, err := m.db.ListSegments("")
	if err != nil {
		return err
	}
	for _, s := range segs {
		if _, err := m.decorateSegment(ctx, s.ID, scheduler.ViewChartering); err != nil {
			log.Printf("tripstate: sync segment %d: %v", s.ID, err)
		}
	}

	log.Printf("tripstate: synced %d trips and %d segments to redis", len(trips), len(segs))
	return nil
}

func (m *Manager) cached(ctx context.Context, entity Entity, id int64, view scheduler.ViewMode) *CachedDecoration {
	if m.redis == nil {
		return nil
	}
	d, err := m.redis.GetDecoration(ctx, entity, id, view)
	if err != nil {
		log.Printf("tripstate: redis get %s %d: %v", entity, id, err)
		return nil
	}
	return d
}

func (m *Manager) decorateTrip(ctx context.Context, tripID int64, view scheduler.ViewMode) (CachedDecoration, error) {
	gen, cache := m.generation(ctx, EntityTrip, tripID)
	t, err := m.db.GetTrip(tripID)
	if err != nil {
		return CachedDecoration{}, err
	}
	state, err := m.db.TripState(t)
	if err != nil {
		return CachedDecoration{}, err
	}
	d := resolve(state, view)
	if cache {
		m.put(ctx, EntityTrip, tripID, view, gen, d)
	}
	return d, nil
}

func (m *Manager) decorateSegment(ctx context.Context, segmentID int64, view scheduler.ViewMode) (CachedDecoration, error) {
	gen, cache := m.generation(ctx, EntitySegment, segmentID)
	s, err := m.db.GetSegment(segmentID)
	if err != nil {
		return CachedDecoration{}, err
	}
	d := resolve(s.State(), view)
	if cache {
		m.put(ctx, EntitySegment, segmentID, view, gen, d)
	}
	return d, nil
}

// generation must be read before the SQL it guards. false means the result
// is not cached.
func (m *Manager) generation(ctx context.Context, entity Entity, id int64) (int64, bool) {
	if m.redis == nil {
		return 0, false
	}
	gen, err := m.redis.Generation(ctx, entity, id)
	if err != nil {
		log.Printf("tripstate: redis generation %s %d: %v", entity, id, err)
		return 0, false
	}
	return gen, true
}

func (m *Manager) put(ctx context.Context, entity Entity, id int64, view scheduler.ViewMode, gen int64, d CachedDecoration) {
	stored, err := m.redis.SetDecoration(ctx, entity, id, view, gen, d)
	if err != nil {
		log.Printf("tripstate: redis set %s %d: %v", entity, id, err)
		return
	}
	if !stored {
		log.Printf("tripstate: %s %d invalidated while resolving %s, not cached", entity, id, view)
	}
}

func (m *Manager) invalidate(ctx context.Context, entity Entity, id int64) {
	if m.redis == nil {
		return
	}
	if err := m.redis.Invalidate(ctx, entity, id); err != nil {
		log.Printf("tripstate: redis invalidate %s %d: %v", entity, id, err)
	}
}

func resolve(state scheduler.TripState, view scheduler.ViewMode) CachedDecoration {
	key := scheduler.ResolveStatusKey(state, view)
	return CachedDecoration{Key: key, Decoration: scheduler.LookupDecoration(key)}
}
