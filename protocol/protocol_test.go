package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"tmscore/scheduler"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	src := Address{Role: RoleTMS, Station: "tms-eu"}
	dst := Address{Role: RoleCore, Station: "tmscore"}

	env, err := NewEnvelope(TypeTripStatus, src, dst, &TripStatus{
		TripUID:       "trip-123",
		Status:        "ongoing",
		TruckerStatus: "acknowledged",
	})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	if env.Version != Version {
		t.Errorf("version = %d, want %d", env.Version, Version)
	}
	if env.Type != TypeTripStatus {
		t.Errorf("type = %q, want %q", env.Type, TypeTripStatus)
	}
	if env.Src != src {
		t.Errorf("src = %+v, want %+v", env.Src, src)
	}
	if env.ID == "" {
		t.Error("ID should not be empty")
	}

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != env.ID {
		t.Errorf("decoded id = %q, want %q", decoded.ID, env.ID)
	}

	var p TripStatus
	if err := decoded.DecodePayload(&p); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.TripUID != "trip-123" || p.Status != "ongoing" {
		t.Errorf("payload = %+v", p)
	}
}

func TestNewReply(t *testing.T) {
	reply, err := NewReply(TypeTripMoveRejected,
		Address{Role: RoleCore},
		Address{Role: RoleTMS, Station: "tms-eu"},
		"orig-msg-id",
		&TripMoveRejected{TripUID: "trip-1", Message: scheduler.MsgMoveTripDone},
	)
	if err != nil {
		t.Fatalf("NewReply: %v", err)
	}
	if reply.CorID != "orig-msg-id" {
		t.Errorf("cor = %q, want %q", reply.CorID, "orig-msg-id")
	}
}

func TestExpiry(t *testing.T) {
	env := &Envelope{ExpiresAt: time.Now().UTC().Add(-1 * time.Minute)}
	if !IsExpired(env) {
		t.Error("expected expired envelope to be detected")
	}

	env.ExpiresAt = time.Now().UTC().Add(10 * time.Minute)
	if IsExpired(env) {
		t.Error("expected future-expiry envelope to not be expired")
	}

	env.ExpiresAt = time.Time{}
	if IsExpired(env) {
		t.Error("expected zero-expiry envelope to not be expired")
	}
}

func TestDefaultTTLFor(t *testing.T) {
	if ttl := DefaultTTLFor(TypeTripInvoicing); ttl != 60*time.Minute {
		t.Errorf("invoicing TTL = %v, want 60m", ttl)
	}
	if ttl := DefaultTTLFor(TypeDecorationChanged); ttl != 5*time.Minute {
		t.Errorf("decoration TTL = %v, want 5m", ttl)
	}
	if ttl := DefaultTTLFor(TypeResourceUpsert); ttl != 24*time.Hour {
		t.Errorf("resource upsert TTL = %v, want 24h", ttl)
	}
	if ttl := DefaultTTLFor(TypeSegmentMoveRejected); ttl != 5*time.Minute {
		t.Errorf("segment reject TTL = %v, want 5m", ttl)
	}
	if ttl := DefaultTTLFor("unknown.type"); ttl != FallbackTTL {
		t.Errorf("unknown TTL = %v, want %v", ttl, FallbackTTL)
	}
}

func encode(t *testing.T, msgType string, dst Address, payload any) []byte {
	t.Helper()
	env, err := NewEnvelope(msgType, Address{Role: RoleTMS}, dst, payload)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestIngestorDispatch(t *testing.T) {
	handler := &testHandler{}
	ingestor := NewIngestor(handler, nil)

	ingestor.HandleRaw(encode(t, TypeTripStatus, Address{Role: RoleCore}, &TripStatus{TripUID: "trip-1", Status: "done"}))
	ingestor.HandleRaw(encode(t, TypeTripInvoicing, Address{Role: RoleCore}, &TripInvoicing{TransportUID: "tr-1", InvoicingStatus: "PAID"}))
	ingestor.HandleRaw(encode(t, TypeSegmentStatus, Address{Role: RoleCore}, &SegmentStatus{SegmentUID: "seg-1", TruckerStatus: "assigned"}))
	ingestor.HandleRaw(encode(t, TypeDecorationChanged, Address{Role: RoleCore}, &DecorationChanged{EntityUID: "trip-1", StatusKey: scheduler.KeyDone}))

	if handler.tripStatus.TripUID != "trip-1" || handler.tripStatus.Status != "done" {
		t.Errorf("trip status = %+v", handler.tripStatus)
	}
	if handler.invoicing.InvoicingStatus != "PAID" {
		t.Errorf("invoicing = %+v", handler.invoicing)
	}
	if handler.segment.TruckerStatus != "assigned" {
		t.Errorf("segment = %+v", handler.segment)
	}
	if handler.decoration.StatusKey != scheduler.KeyDone {
		t.Errorf("decoration = %+v", handler.decoration)
	}
}

func TestIngestorDispatchMasterData(t *testing.T) {
	handler := &testHandler{}
	ingestor := NewIngestor(handler, nil)
	pos := 2

	ingestor.HandleRaw(encode(t, TypeTripUpsert, Address{Role: RoleCore}, &TripUpsert{
		TripUID:  "trip-1",
		Position: &pos,
		Activities: []ActivityUpsert{{
			Kind:       scheduler.ActivityGrouped,
			Transports: []TransportRef{{UID: "tr-1"}, {UID: "tr-2", InvoicingStatus: "PAID"}},
		}},
	}))
	ingestor.HandleRaw(encode(t, TypeTripVehicle, Address{Role: RoleCore}, &TripVehicle{TripUID: "trip-1", VehiclePlate: "AB-1"}))
	ingestor.HandleRaw(encode(t, TypeTripDelete, Address{Role: RoleCore}, &TripDelete{TripUID: "trip-2"}))
	ingestor.HandleRaw(encode(t, TypeSegmentUpsert, Address{Role: RoleCore}, &SegmentUpsert{SegmentUID: "seg-1", CarrierName: "ACME"}))
	ingestor.HandleRaw(encode(t, TypeResourceUpsert, Address{Role: RoleCore}, &ResourceUpsert{ResourceUID: "V1", Kind: "vehicle"}))
	ingestor.HandleRaw(encode(t, TypeSegmentMoveRejected, Address{Role: RoleTMS}, &SegmentMoveRejected{SegmentUID: "seg-1", Message: "scheduler.moveTripDone"}))

	if handler.calls != 6 {
		t.Fatalf("calls = %d, want 6", handler.calls)
	}
	if handler.upsert.Position == nil || *handler.upsert.Position != 2 {
		t.Errorf("upsert position = %v", handler.upsert.Position)
	}
	if acts := handler.upsert.Activities; len(acts) != 1 || len(acts[0].Transports) != 2 || acts[0].Transports[1].InvoicingStatus != "PAID" {
		t.Errorf("upsert activities = %+v", acts)
	}
	if handler.vehicle.VehiclePlate != "AB-1" || handler.deleted.TripUID != "trip-2" {
		t.Errorf("vehicle = %+v, delete = %+v", handler.vehicle, handler.deleted)
	}
	if handler.segUpsert.CarrierName != "ACME" || handler.resource.Kind != "vehicle" {
		t.Errorf("segment = %+v, resource = %+v", handler.segUpsert, handler.resource)
	}
	if handler.segReject.SegmentUID != "seg-1" {
		t.Errorf("segment rejection = %+v", handler.segReject)
	}
}

func TestIngestorFilter(t *testing.T) {
	handler := &testHandler{}
	ingestor := NewIngestor(handler, StationFilter("tmscore"))

	ingestor.HandleRaw(encode(t, TypeTripStatus, Address{Role: RoleCore, Station: "other"}, &TripStatus{TripUID: "skip"}))
	if handler.calls != 0 {
		t.Error("expected handler to NOT be called for another station")
	}

	ingestor.HandleRaw(encode(t, TypeTripStatus, Address{Role: RoleCore, Station: BroadcastStation}, &TripStatus{TripUID: "all"}))
	ingestor.HandleRaw(encode(t, TypeTripStatus, Address{Role: RoleCore, Station: "tmscore"}, &TripStatus{TripUID: "mine"}))
	if handler.calls != 2 {
		t.Errorf("calls = %d, want 2", handler.calls)
	}
}

func TestIngestorDropsExpired(t *testing.T) {
	handler := &testHandler{}
	ingestor := NewIngestor(handler, nil)

	env, _ := NewEnvelope(TypeTripStatus, Address{Role: RoleTMS}, Address{Role: RoleCore}, &TripStatus{TripUID: "trip-1"})
	env.ExpiresAt = time.Now().UTC().Add(-1 * time.Minute)
	data, _ := env.Encode()

	ingestor.HandleRaw(data)

	if handler.calls != 0 {
		t.Error("expected handler to NOT be called for expired message")
	}
}

func TestIngestorIgnoresGarbage(t *testing.T) {
	handler := &testHandler{}
	ingestor := NewIngestor(handler, nil)

	ingestor.HandleRaw([]byte(`not json`))
	ingestor.HandleRaw(encode(t, "vehicle.telemetry", Address{}, map[string]string{"x": "y"}))
	ingestor.HandleRaw([]byte(`{"v":1,"type":"trip.status","id":"x","p":"oops"}`))

	if handler.calls != 0 {
		t.Errorf("calls = %d, want 0", handler.calls)
	}
}

func TestWireFormatKeys(t *testing.T) {
	data := encode(t, TypeTripMoved, Address{Role: RoleCore}, &TripMoved{TripUID: "t", To: scheduler.UnplannedPayload()})

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"v", "type", "id", "src", "dst", "ts", "exp", "p"} {
		if _, ok := m[k]; !ok {
			t.Errorf("expected key %q in wire format", k)
		}
	}
	for _, k := range []string{"version", "payload", "timestamp", "expires_at"} {
		if _, ok := m[k]; ok {
			t.Errorf("unexpected long key %q in wire format", k)
		}
	}

	var p map[string]json.RawMessage
	json.Unmarshal(m["p"], &p)
	if string(p["to"]) != `{"resourceUid":"unplanned","day":"","index":0}` {
		t.Errorf("to = %s", p["to"])
	}
}

// testHandler records the last payload of each inbound type.
type testHandler struct {
	NoOpHandler
	calls      int
	tripStatus TripStatus
	invoicing  TripInvoicing
	segment    SegmentStatus
	decoration DecorationChanged
	upsert     TripUpsert
	vehicle    TripVehicle
	deleted    TripDelete
	segUpsert  SegmentUpsert
	resource   ResourceUpsert
	segReject  SegmentMoveRejected
}

func (h *testHandler) HandleTripUpsert(env *Envelope, p *TripUpsert) {
	h.calls++
	h.upsert = *p
}

func (h *testHandler) HandleTripVehicle(env *Envelope, p *TripVehicle) {
	h.calls++
	h.vehicle = *p
}

func (h *testHandler) HandleTripDelete(env *Envelope, p *TripDelete) {
	h.calls++
	h.deleted = *p
}

func (h *testHandler) HandleSegmentUpsert(env *Envelope, p *SegmentUpsert) {
	h.calls++
	h.segUpsert = *p
}

func (h *testHandler) HandleResourceUpsert(env *Envelope, p *ResourceUpsert) {
	h.calls++
	h.resource = *p
}

func (h *testHandler) HandleSegmentMoveRejected(env *Envelope, p *SegmentMoveRejected) {
	h.calls++
	h.segReject = *p
}

func (h *testHandler) HandleTripStatus(env *Envelope, p *TripStatus) {
	h.calls++
	h.tripStatus = *p
}

func (h *testHandler) HandleTripInvoicing(env *Envelope, p *TripInvoicing) {
	h.calls++
	h.invoicing = *p
}

func (h *testHandler) HandleSegmentStatus(env *Envelope, p *SegmentStatus) {
	h.calls++
	h.segment = *p
}

func (h *testHandler) HandleDecorationChanged(env *Envelope, p *DecorationChanged) {
	h.calls++
	h.decoration = *p
}
