package www

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"tmscore/config"
	"tmscore/engine"
	"tmscore/scheduler"
	"tmscore/store"
	"tmscore/tmsapi"
)

type failingBackend struct{}

func (failingBackend) PatchTripPlacement(context.Context, string, scheduler.CellPayload) error {
	return errors.New("HTTP 409")
}
func (failingBackend) PatchSegmentPlacement(context.Context, string, scheduler.CellPayload) error {
	return errors.New("HTTP 409")
}
func (failingBackend) Ping(context.Context) (*tmsapi.PingResponse, error) {
	return nil, errors.New("down")
}

type testServer struct {
	srv  *httptest.Server
	db   *store.DB
	eng  *engine.Engine
	path string
}

func newTestServer(t *testing.T, backend engine.Backend) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Web.SessionSecret = "test-secret"
	cfgPath := filepath.Join(dir, "tmscore.yaml")
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: cfgPath,
		DB:         db,
		Backend:    backend,
	})

	handler, stop := NewRouter(eng)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		stop()
	})
	return &testServer{srv: srv, db: db, eng: eng, path: cfgPath}
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(ts.srv.URL+"/api/login", "application/json",
		strings.NewReader(`{"username":"admin","password":"admin"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if lr.Token == "" {
		t.Fatal("empty token")
	}
	return lr.Token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, ts.srv.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) seedTrip(t *testing.T, status string) *store.Trip {
	t.Helper()
	trip := &store.Trip{Name: "trip", Status: status, ResourceUID: "R1", Day: "2026-10-19"}
	if err := ts.db.CreateTrip(trip); err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return trip
}

func moveBody(trip *store.Trip, resource, day string) map[string]any {
	return map[string]any{
		"id": trip.ID,
		"source": scheduler.DragContext{Kind: scheduler.DragScheduler, ID: trip.UID,
			Payload: scheduler.CellPayload{ResourceUID: trip.ResourceUID, Day: trip.Day}},
		"target": scheduler.DragContext{Kind: scheduler.DragScheduler, ID: "cell",
			Payload: scheduler.CellPayload{ResourceUID: resource, Day: day}},
	}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthAndDecorations(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, "GET", "/api/health", "", nil)
	var health healthResponse
	decode(t, resp, &health)
	if health.Status != "ok" || health.BackendConfigured {
		t.Errorf("health = %+v", health)
	}

	resp = ts.do(t, "GET", "/api/decorations", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decorations status = %d", resp.StatusCode)
	}
	var decorations map[string]any
	decode(t, resp, &decorations)
	if len(decorations) == 0 {
		t.Error("expected decorations")
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, "POST", "/api/login", "", loginRequest{Username: "admin", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp = ts.do(t, "GET", "/api/audit", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no auth status = %d, want 401", resp.StatusCode)
	}

	resp = ts.do(t, "GET", "/api/audit", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}

	token := ts.login(t)
	resp = ts.do(t, "GET", "/api/audit", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authorized status = %d, want 200", resp.StatusCode)
	}
}

func TestMoveTripEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	trip := ts.seedTrip(t, "unstarted")

	resp := ts.do(t, "POST", "/api/scheduler/move", token, moveBody(trip, "R2", "2026-10-20"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var mr moveResponse
	decode(t, resp, &mr)
	if !mr.Result || mr.To.ResourceUID != "R2" || mr.From.ResourceUID != "R1" {
		t.Errorf("response = %+v", mr)
	}

	got, _ := ts.db.GetTrip(trip.ID)
	if got.ResourceUID != "R2" {
		t.Errorf("trip not moved: %+v", got)
	}

	resp = ts.do(t, "GET", "/api/trips/"+itoa(trip.ID)+"/history", "", nil)
	var history []*store.MoveRecord
	decode(t, resp, &history)
	if len(history) != 1 || history[0].Actor != "admin" {
		t.Errorf("history = %+v", history)
	}
}

func TestMoveTripRejectedAndIgnored(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	done := ts.seedTrip(t, "done")

	resp := ts.do(t, "POST", "/api/scheduler/move", token, moveBody(done, "R2", "2026-10-19"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var mr moveResponse
	decode(t, resp, &mr)
	if mr.Result || mr.Message != scheduler.MsgMoveTripDone {
		t.Errorf("response = %+v", mr)
	}

	// Dropping a trip back onto its own slot is not a move.
	resp = ts.do(t, "POST", "/api/scheduler/move", token, moveBody(done, "R1", "2026-10-19"))
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("self drop status = %d, want 204", resp.StatusCode)
	}

	unknown := &store.Trip{ID: 9999, UID: "x", ResourceUID: "R1", Day: "2026-10-19"}
	resp = ts.do(t, "POST", "/api/scheduler/move", token, moveBody(unknown, "R2", "2026-10-19"))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown trip status = %d, want 404", resp.StatusCode)
	}
}

func TestMoveTripUpstreamFailure(t *testing.T) {
	ts := newTestServer(t, failingBackend{})
	token := ts.login(t)
	trip := ts.seedTrip(t, "unstarted")

	resp := ts.do(t, "POST", "/api/scheduler/move", token, moveBody(trip, "R2", "2026-10-19"))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	got, _ := ts.db.GetTrip(trip.ID)
	if got.ResourceUID != "R1" {
		t.Errorf("placement not rolled back: %+v", got)
	}
}

func TestDroppableAndCheck(t *testing.T) {
	ts := newTestServer(t, nil)
	trip := ts.seedTrip(t, "ongoing")
	body := moveBody(trip, "R2", "2026-10-19")

	resp := ts.do(t, "POST", "/api/scheduler/droppable", "", body)
	var dr map[string]bool
	decode(t, resp, &dr)
	if !dr["droppable"] {
		t.Errorf("droppable = %v", dr)
	}

	body["entity"] = "trip"
	resp = ts.do(t, "POST", "/api/scheduler/check", "", body)
	var out struct {
		Droppable bool                  `json:"droppable"`
		Verdict   scheduler.MoveVerdict `json:"verdict"`
	}
	decode(t, resp, &out)
	if !out.Droppable || out.Verdict.Result || out.Verdict.Message != scheduler.MsgMoveTripOngoing {
		t.Errorf("check = %+v", out)
	}
	got, _ := ts.db.GetTrip(trip.ID)
	if got.ResourceUID != "R1" {
		t.Error("check must not persist")
	}
}

func TestTripReads(t *testing.T) {
	ts := newTestServer(t, nil)
	trip := ts.seedTrip(t, "unstarted")

	resp := ts.do(t, "GET", "/api/trips?resource=R1", "", nil)
	var board []map[string]any
	decode(t, resp, &board)
	if len(board) != 1 {
		t.Fatalf("board = %+v", board)
	}

	resp = ts.do(t, "GET", "/api/trips/"+itoa(trip.ID), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get trip status = %d", resp.StatusCode)
	}

	resp = ts.do(t, "GET", "/api/trips/9999/history", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown history status = %d, want 404", resp.StatusCode)
	}

	resp = ts.do(t, "GET", "/api/trips/abc", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", resp.StatusCode)
	}
}

func TestExportPlanning(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)
	ts.seedTrip(t, "unstarted")

	resp := ts.do(t, "GET", "/api/scheduler/export.xlsx", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestConfigSaveAndGet(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	form := url.Values{
		"section":       {"scheduler"},
		"default_view":  {"vehicle"},
		"history_limit": {"25"},
	}
	req, _ := http.NewRequest("POST", ts.srv.URL+"/api/config/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	if _, err := os.Stat(ts.path); err != nil {
		t.Errorf("config not written: %v", err)
	}
	loaded, err := config.Load(ts.path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Scheduler.DefaultView != "vehicle" || loaded.Scheduler.HistoryLimit != 25 {
		t.Errorf("saved scheduler = %+v", loaded.Scheduler)
	}

	ts.eng.AppConfig().Backend.Token = "secret"
	resp = ts.do(t, "GET", "/api/config", token, nil)
	var v configView
	decode(t, resp, &v)
	if v.BackendToken != redacted || v.DefaultView != "vehicle" {
		t.Errorf("config view = %+v", v)
	}

	form.Set("section", "bogus")
	req, _ = http.NewRequest("POST", ts.srv.URL+"/api/config/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown section status = %d, want 400", resp.StatusCode)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestTripSyncEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	body := map[string]any{
		"trip_uid":     "tms-42",
		"name":         "Lyon run",
		"resource_uid": "R1",
		"day":          "2026-10-19",
		"activities": []map[string]any{
			{"kind": "single", "transports": []map[string]any{{"uid": "tr-1"}}},
		},
	}
	if resp := ts.do(t, "POST", "/api/trips", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous upsert status = %d, want 401", resp.StatusCode)
	}
	resp := ts.do(t, "POST", "/api/trips", token, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert status = %d", resp.StatusCode)
	}
	var trip store.Trip
	decode(t, resp, &trip)
	if trip.UID != "tms-42" || trip.ResourceUID != "R1" {
		t.Fatalf("trip = %+v", trip)
	}

	resp = ts.do(t, "PUT", "/api/trips/"+itoa(trip.ID)+"/vehicle", token, map[string]string{"vehicle_plate": "AB-123-CD"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vehicle status = %d", resp.StatusCode)
	}
	decode(t, resp, &trip)
	if trip.VehiclePlate != "AB-123-CD" {
		t.Errorf("plate = %q", trip.VehiclePlate)
	}

	bad := map[string]any{"trip_uid": "tms-43", "activities": []map[string]any{{"kind": "single"}}}
	if resp := ts.do(t, "POST", "/api/trips", token, bad); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid activity status = %d, want 400", resp.StatusCode)
	}

	ts.db.AppendAudit("trip", trip.ID, "vehicle", "", "AB-123-CD", "admin")
	resp = ts.do(t, "GET", "/api/trips/"+itoa(trip.ID)+"/audit", token, nil)
	var audit []store.AuditEntry
	decode(t, resp, &audit)
	if len(audit) != 1 || audit[0].Action != "vehicle" {
		t.Errorf("audit = %+v", audit)
	}

	if resp := ts.do(t, "DELETE", "/api/trips/"+itoa(trip.ID)+"?reason=cancelled", token, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	if resp := ts.do(t, "DELETE", "/api/trips/"+itoa(trip.ID), token, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
	if resp := ts.do(t, "PUT", "/api/trips/9999/vehicle", token, map[string]string{}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown trip vehicle status = %d, want 404", resp.StatusCode)
	}
}

func TestSegmentAndResourceSyncEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t)

	resp := ts.do(t, "POST", "/api/resources", token, map[string]string{"resource_uid": "C1", "kind": "carrier", "label": "Acme"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resource status = %d", resp.StatusCode)
	}
	resp = ts.do(t, "GET", "/api/resources?kind=carrier", "", nil)
	var resources []store.Resource
	decode(t, resp, &resources)
	if len(resources) != 1 || resources[0].Label != "Acme" {
		t.Errorf("resources = %+v", resources)
	}
	if resp := ts.do(t, "POST", "/api/resources", token, map[string]string{"resource_uid": "unplanned"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reserved resource status = %d, want 400", resp.StatusCode)
	}

	resp = ts.do(t, "POST", "/api/segments", token, map[string]string{"segment_uid": "seg-1", "carrier_name": "Acme", "resource_uid": "C1", "day": "2026-10-19"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("segment status = %d", resp.StatusCode)
	}
	var seg store.Segment
	decode(t, resp, &seg)
	if seg.UID != "seg-1" || seg.ResourceUID != "C1" {
		t.Errorf("segment = %+v", seg)
	}
	if resp := ts.do(t, "POST", "/api/segments", token, map[string]string{"segment_uid": "seg-2", "trip_uid": "ghost"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown trip status = %d, want 404", resp.StatusCode)
	}
}
