package tripstate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tmscore/config"
	"tmscore/scheduler"
	"tmscore/store"

	"github.com/redis/go-redis/v9"
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

// deadRedis points at a port nothing listens on, so every call fails fast.
func deadRedis(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Minute)
}

func seedDoneTrip(t *testing.T, db *store.DB, invoicing ...string) *store.Trip {
	t.Helper()
	trip := &store.Trip{Name: "T", Status: "done", TruckerStatus: "acknowledged", ResourceUID: "R1", Day: "2026-10-19"}
	if err := db.CreateTrip(trip); err != nil {
		t.Fatalf("create trip: %v", err)
	}
	for _, st := range invoicing {
		tr := &store.Transport{InvoicingStatus: st}
		if err := db.CreateTransport(tr); err != nil {
			t.Fatalf("create transport: %v", err)
		}
		if _, err := db.AddActivity(trip.ID, scheduler.ActivitySingle, "stop", tr.ID); err != nil {
			t.Fatalf("add activity: %v", err)
		}
	}
	return trip
}

func TestTripDecorationWithoutRedis(t *testing.T) {
	db := testDB(t)
	mgr := NewManager(db, nil)
	trip := seedDoneTrip(t, db, "PAID", "INVOICED")

	d, err := mgr.TripDecoration(context.Background(), trip.ID, scheduler.ViewTrucker)
	if err != nil {
		t.Fatalf("decoration: %v", err)
	}
	if d.Key != scheduler.KeyInvoiced {
		t.Errorf("key = %s, want invoiced", d.Key)
	}
	if d.Decoration != scheduler.LookupDecoration(scheduler.KeyInvoiced) {
		t.Errorf("decoration = %+v", d.Decoration)
	}

	if _, err := mgr.TripDecoration(context.Background(), 9999, scheduler.ViewTrucker); err == nil {
		t.Error("expected error for unknown trip")
	}
}

func TestTripDecorationRedisDown(t *testing.T) {
	db := testDB(t)
	mgr := NewManager(db, deadRedis(t))
	trip := seedDoneTrip(t, db, "VERIFIED", "PAID")

	d, err := mgr.TripDecoration(context.Background(), trip.ID, "")
	if err != nil {
		t.Fatalf("decoration should not fail when redis is down: %v", err)
	}
	if d.Key != scheduler.KeyVerified {
		t.Errorf("key = %s, want verified", d.Key)
	}
	mgr.InvalidateTrip(context.Background(), trip.ID)
	if err := mgr.SyncRedisFromSQL(context.Background()); err == nil {
		t.Error("sync should report the redis error")
	}
}

func TestTripBoardVehicleView(t *testing.T) {
	db := testDB(t)
	mgr := NewManager(db, nil)

	planned := &store.Trip{Name: "with plate", ResourceUID: "V1", Day: "2026-10-19", VehiclePlate: "AB-123-CD"}
	bare := &store.Trip{Name: "no plate", ResourceUID: "V1", Day: "2026-10-19", Position: 1}
	db.CreateTrip(planned)
	db.CreateTrip(bare)

	board, err := mgr.TripBoard(context.Background(), store.TripFilter{ResourceUID: "V1"}, scheduler.ViewVehicle)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("board = %d, want 2", len(board))
	}
	if board[0].StatusKey != scheduler.KeyTruckerAssigned {
		t.Errorf("plated trip key = %s, want trucker_assigned", board[0].StatusKey)
	}
	if board[1].StatusKey != scheduler.KeyUnassigned {
		t.Errorf("bare trip key = %s, want unassigned", board[1].StatusKey)
	}

	trucker, _ := mgr.TripBoard(context.Background(), store.TripFilter{ResourceUID: "V1"}, scheduler.ViewTrucker)
	if trucker[0].StatusKey != scheduler.KeyUnassigned {
		t.Errorf("trucker view key = %s, want unassigned", trucker[0].StatusKey)
	}
}

func TestSegmentBoard(t *testing.T) {
	db := testDB(t)
	mgr := NewManager(db, nil)

	seg := &store.Segment{CarrierName: "ACME", TruckerStatus: "sent_to_charter", ResourceUID: "C1", Day: "2026-10-19"}
	if err := db.CreateSegment(seg); err != nil {
		t.Fatalf("create segment: %v", err)
	}

	board, err := mgr.SegmentBoard(context.Background(), "C1", "")
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board) != 1 || board[0].StatusKey != scheduler.KeySentToCharter {
		t.Errorf("board = %+v", board)
	}

	d, err := mgr.SegmentDecoration(context.Background(), seg.ID, scheduler.ViewChartering)
	if err != nil {
		t.Fatalf("decoration: %v", err)
	}
	if d.Decoration.StatusLabel != "scheduler.status.sentToCharter" {
		t.Errorf("label = %q", d.Decoration.StatusLabel)
	}
}

func TestKeys(t *testing.T) {
	if got := decorationKey(EntityTrip, 7, scheduler.ViewVehicle); got != "tmscore:trip:7:decoration:vehicle" {
		t.Errorf("decorationKey = %q", got)
	}
	if got := decorationKey(EntitySegment, 3, scheduler.ViewChartering); got != "tmscore:segment:3:decoration:chartering" {
		t.Errorf("decorationKey = %q", got)
	}
	if got := genKey(EntityTrip, 7); got != "tmscore:trip:7:gen" {
		t.Errorf("genKey = %q", got)
	}
}
