package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"tmscore/config"
	"tmscore/planner"
	"tmscore/protocol"
	"tmscore/scheduler"
	"tmscore/store"
	"tmscore/tmsapi"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeBackend struct {
	mu      sync.Mutex
	pingErr error
}

func (f *fakeBackend) PatchTripPlacement(context.Context, string, scheduler.CellPayload) error {
	return nil
}
func (f *fakeBackend) PatchSegmentPlacement(context.Context, string, scheduler.CellPayload) error {
	return nil
}
func (f *fakeBackend) Ping(context.Context) (*tmsapi.PingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pingErr != nil {
		return nil, f.pingErr
	}
	return &tmsapi.PingResponse{Status: "ok"}, nil
}

type fakeMessenger struct{ up bool }

func (f *fakeMessenger) IsConnected() bool                         { return f.up }
func (f *fakeMessenger) Reconfigure(*config.MessagingConfig) error { return nil }

func newTestEngine(t *testing.T, backend Backend) (*Engine, *store.DB) {
	t.Helper()
	db := testDB(t)
	e := New(Config{
		AppConfig: config.Defaults(),
		DB:        db,
		Backend:   backend,
		LogFunc:   t.Logf,
	})
	e.Start()
	t.Cleanup(e.Stop)
	return e, db
}

func outboxTypes(t *testing.T, db *store.DB) []string {
	t.Helper()
	msgs, err := db.ListPendingOutbox(100, 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	var types []string
	for _, m := range msgs {
		types = append(types, m.MsgType)
	}
	return types
}

func TestEventBusFilterAndUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var all, moved int
	id := bus.Subscribe(func(Event) { all++ })
	bus.SubscribeTypes(func(Event) { moved++ }, EventTripMoved)
	bus.Subscribe(func(Event) { panic("boom") })

	bus.Emit(Event{Type: EventTripMoved})
	bus.Emit(Event{Type: EventSegmentMoved})
	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventTripMoved})

	if all != 2 {
		t.Errorf("all = %d, want 2", all)
	}
	if moved != 2 {
		t.Errorf("moved = %d, want 2", moved)
	}
}

func TestMoveWiring(t *testing.T) {
	e, db := newTestEngine(t, nil)
	trip := &store.Trip{Name: "T", ResourceUID: "R1", Day: "2026-10-19"}
	db.CreateTrip(trip)

	var seen []EventType
	e.Events.Subscribe(func(evt Event) { seen = append(seen, evt.Type) })

	_, err := e.Planner().MoveTrip(context.Background(), planner.MoveRequest{
		ID:     trip.ID,
		Source: scheduler.DragContext{Kind: scheduler.DragScheduler, ID: trip.UID, Payload: trip.Payload()},
		Target: scheduler.DragContext{Kind: scheduler.DragScheduler, ID: "cell", Payload: scheduler.CellPayload{ResourceUID: "R2", Day: "2026-10-20"}},
		Actor:  "alice",
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(seen) != 1 || seen[0] != EventTripMoved {
		t.Errorf("events = %v", seen)
	}

	audit, _ := db.ListEntityAudit("trip", trip.ID)
	if len(audit) != 1 || audit[0].Action != "moved" || audit[0].Actor != "alice" || audit[0].NewValue != "R2/2026-10-20#0" {
		t.Errorf("audit = %+v", audit)
	}

	msgs, _ := db.ListPendingOutbox(10, 0)
	if len(msgs) != 1 || msgs[0].MsgType != protocol.TypeTripMoved || msgs[0].Topic != "tms.scheduler" {
		t.Fatalf("outbox = %+v", msgs)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var p protocol.TripMoved
	env.DecodePayload(&p)
	if p.TripUID != trip.UID || p.To.ResourceUID != "R2" || env.Dst.Station != protocol.BroadcastStation {
		t.Errorf("payload = %+v dst = %+v", p, env.Dst)
	}
}

func TestRejectedMoveWiring(t *testing.T) {
	e, db := newTestEngine(t, nil)
	trip := &store.Trip{Name: "T", Status: "done", ResourceUID: "R1", Day: "D1"}
	db.CreateTrip(trip)

	e.Planner().MoveTrip(context.Background(), planner.MoveRequest{
		ID:     trip.ID,
		Source: scheduler.DragContext{Kind: scheduler.DragScheduler, ID: trip.UID, Payload: trip.Payload()},
		Target: scheduler.DragContext{Kind: scheduler.DragTable, ID: "table"},
	})

	if got := outboxTypes(t, db); len(got) != 1 || got[0] != protocol.TypeTripMoveRejected {
		t.Errorf("outbox = %v", got)
	}
	audit, _ := db.ListEntityAudit("trip", trip.ID)
	if len(audit) != 1 || audit[0].Action != "move_rejected" {
		t.Errorf("audit = %+v", audit)
	}
}

func TestRejectedSegmentMoveWiring(t *testing.T) {
	e, db := newTestEngine(t, nil)
	seg := &store.Segment{CarrierName: "Acme", Status: "done", ResourceUID: "C1", Day: "D1"}
	if err := db.CreateSegment(seg); err != nil {
		t.Fatalf("create segment: %v", err)
	}

	e.Planner().MoveSegment(context.Background(), planner.MoveRequest{
		ID:     seg.ID,
		Source: scheduler.DragContext{Kind: scheduler.DragScheduler, ID: seg.UID, Payload: seg.Payload()},
		Target: scheduler.DragContext{Kind: scheduler.DragTable, ID: "table"},
		Actor:  "alice",
	})

	msgs, _ := db.ListPendingOutbox(10, 0)
	if len(msgs) != 1 || msgs[0].MsgType != protocol.TypeSegmentMoveRejected {
		t.Fatalf("outbox = %v", outboxTypes(t, db))
	}
	var env protocol.Envelope
	json.Unmarshal(msgs[0].Payload, &env)
	var rej protocol.SegmentMoveRejected
	env.DecodePayload(&rej)
	if rej.SegmentUID != seg.UID || rej.Message == "" || rej.Actor != "alice" {
		t.Errorf("payload = %+v", rej)
	}
	audit, _ := db.ListEntityAudit("segment", seg.ID)
	if len(audit) != 1 || audit[0].Action != "move_rejected" {
		t.Errorf("audit = %+v", audit)
	}
}

func TestSyncWiring(t *testing.T) {
	e, db := newTestEngine(t, nil)

	trip, err := e.Planner().UpsertTrip(&protocol.TripUpsert{TripUID: "trip-1", Name: "T", ResourceUID: "R1", Day: "D1"}, planner.SyncActor)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	audit, _ := db.ListEntityAudit("trip", trip.ID)
	if len(audit) != 1 || audit[0].Action != "created" || audit[0].Actor != planner.SyncActor {
		t.Errorf("audit = %+v", audit)
	}

	if err := e.Planner().SetTripVehicle(&protocol.TripVehicle{TripUID: "trip-1", VehiclePlate: "AB-1"}, "admin"); err != nil {
		t.Fatalf("vehicle: %v", err)
	}
	msgs, _ := db.ListPendingOutbox(10, 0)
	if len(msgs) != 2 {
		t.Fatalf("outbox = %v", outboxTypes(t, db))
	}
	var env protocol.Envelope
	json.Unmarshal(msgs[1].Payload, &env)
	var dc protocol.DecorationChanged
	env.DecodePayload(&dc)
	if dc.View != scheduler.ViewVehicle || dc.EntityUID != "trip-1" {
		t.Errorf("decoration = %+v", dc)
	}
	audit, _ = db.ListEntityAudit("trip", trip.ID)
	var vehicle bool
	for _, a := range audit {
		if a.Action == "vehicle" && a.NewValue == "AB-1" && a.Actor == "admin" {
			vehicle = true
		}
	}
	if !vehicle {
		t.Errorf("vehicle change not audited: %+v", audit)
	}

	if err := e.Planner().DeleteTrip("trip-1", "cancelled", planner.SyncActor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	audit, _ = db.ListEntityAudit("trip", trip.ID)
	if len(audit) == 0 || audit[0].Action != "deleted" {
		t.Errorf("delete not audited: %+v", audit)
	}
	if got := outboxTypes(t, db); len(got) != 2 {
		t.Errorf("delete must not enqueue a decoration: %v", got)
	}
}

func TestStatusWiringEnqueuesDecoration(t *testing.T) {
	e, db := newTestEngine(t, nil)
	trip := &store.Trip{Name: "T", ResourceUID: "R1", Day: "D1"}
	db.CreateTrip(trip)

	if err := e.Planner().ApplyTripStatus(trip.UID, "unstarted", "mission_sent_to_trucker", ""); err != nil {
		t.Fatalf("apply: %v", err)
	}

	msgs, _ := db.ListPendingOutbox(10, 0)
	if len(msgs) != 1 || msgs[0].MsgType != protocol.TypeDecorationChanged {
		t.Fatalf("outbox = %v", outboxTypes(t, db))
	}
	var env protocol.Envelope
	json.Unmarshal(msgs[0].Payload, &env)
	var dc protocol.DecorationChanged
	env.DecodePayload(&dc)
	if dc.StatusKey != scheduler.KeyMissionSent || dc.EntityUID != trip.UID || dc.View != scheduler.ViewTrucker {
		t.Errorf("decoration = %+v", dc)
	}
}

func TestInvoicingWiringRedecoratesTrips(t *testing.T) {
	e, db := newTestEngine(t, nil)
	a := &store.Trip{Name: "A", Status: "done"}
	b := &store.Trip{Name: "B", Status: "done"}
	db.CreateTrip(a)
	db.CreateTrip(b)
	tr := &store.Transport{UID: "tr-1", InvoicingStatus: "VERIFIED"}
	db.CreateTransport(tr)
	db.AddActivity(a.ID, scheduler.ActivitySingle, "load", tr.ID)
	db.AddActivity(b.ID, scheduler.ActivitySingle, "load", tr.ID)

	if err := e.Planner().ApplyTransportInvoicing("tr-1", "INVOICED"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got := outboxTypes(t, db)
	if len(got) != 2 || got[0] != protocol.TypeDecorationChanged || got[1] != protocol.TypeDecorationChanged {
		t.Errorf("outbox = %v", got)
	}
	audit, _ := db.ListEntityAudit("transport", tr.ID)
	if len(audit) != 1 || audit[0].OldValue != "VERIFIED" || audit[0].NewValue != "INVOICED" {
		t.Errorf("audit = %+v", audit)
	}
}

func TestConnectionTransitions(t *testing.T) {
	backend := &fakeBackend{}
	e, _ := newTestEngine(t, backend)
	if !e.Status().BackendConnected {
		t.Fatal("backend should be connected after Start")
	}

	var events []EventType
	e.Events.SubscribeTypes(func(evt Event) { events = append(events, evt.Type) },
		EventBackendConnected, EventBackendDisconnected, EventMessagingConnected, EventMessagingDisconnected)

	backend.mu.Lock()
	backend.pingErr = errors.New("connection refused")
	backend.mu.Unlock()
	e.checkConnectionStatus()
	e.checkConnectionStatus()

	msg := &fakeMessenger{up: true}
	e.msgClient = msg
	e.checkConnectionStatus()

	if len(events) != 2 || events[0] != EventBackendDisconnected || events[1] != EventMessagingConnected {
		t.Errorf("events = %v", events)
	}
	st := e.Status()
	if st.BackendConnected || !st.MessagingUp || !st.BackendConfigured {
		t.Errorf("status = %+v", st)
	}
}

func TestReconfigureBackend(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	if e.Status().BackendConfigured {
		t.Fatal("no backend expected")
	}
	e.cfg.Backend.BaseURL = "http://127.0.0.1:1"
	e.ReconfigureBackend()
	if !e.Status().BackendConfigured {
		t.Error("backend should be configured")
	}
	e.cfg.Backend.BaseURL = ""
	e.ReconfigureBackend()
	if e.Status().BackendConfigured {
		t.Error("backend should be cleared")
	}
}
