package journal

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/database"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

// ============================================================
// Record
// ============================================================

func TestRecord_GeneratesIDAndTimestamp(t *testing.T) {
	repo := openTestRepo(t)

	e := &Entry{Topic: "sensehat/commands", Payload: `{"ledwall":"HELLO"}`, Message: "HELLO", Outcome: "displayed"}
	if err := repo.Record(context.Background(), e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if !strings.HasPrefix(e.ID, "cmd-") || len(e.ID) != len("cmd-")+8 {
		t.Errorf("ID = %q, want cmd-XXXXXXXX", e.ID)
	}
	if e.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestRecord_KeepsExplicitFields(t *testing.T) {
	repo := openTestRepo(t)
	at := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	e := &Entry{ID: "cmd-fixed", Topic: "t", Payload: "{", Outcome: "malformed", Error: "unexpected EOF", ReceivedAt: at}
	if err := repo.Record(context.Background(), e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(res.Entries))
	}
	got := res.Entries[0]
	if got.ID != "cmd-fixed" || got.Error != "unexpected EOF" || got.Message != "" {
		t.Errorf("entry = %+v", got)
	}
	if !got.ReceivedAt.Equal(at) {
		t.Errorf("ReceivedAt = %v, want %v", got.ReceivedAt, at)
	}
}

// ============================================================
// List
// ============================================================

func TestList_OrderFilterAndPaging(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	outcomes := []string{"displayed", "malformed", "displayed", "unrecognized", "displayed"}
	for i, outcome := range outcomes {
		e := &Entry{
			Topic:      "sensehat/commands",
			Payload:    "{}",
			Outcome:    outcome,
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantLen   int
		wantLimit int
	}{
		{name: "all", filter: Filter{}, wantTotal: 5, wantLen: 5, wantLimit: defaultLimit},
		{name: "by outcome", filter: Filter{Outcome: "displayed"}, wantTotal: 3, wantLen: 3, wantLimit: defaultLimit},
		{name: "paged", filter: Filter{Limit: 2, Offset: 4}, wantTotal: 5, wantLen: 1, wantLimit: 2},
		{name: "limit clamped", filter: Filter{Limit: 1000, Offset: -3}, wantTotal: 5, wantLen: 5, wantLimit: maxLimit},
		{name: "no match", filter: Filter{Outcome: "display_failed"}, wantTotal: 0, wantLen: 0, wantLimit: defaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Entries) != tt.wantLen || res.Limit != tt.wantLimit {
				t.Errorf("List() total=%d len=%d limit=%d, want %d %d %d",
					res.Total, len(res.Entries), res.Limit, tt.wantTotal, tt.wantLen, tt.wantLimit)
			}
			if res.Entries == nil {
				t.Error("Entries should be empty, not nil")
			}
		})
	}

	res, err := repo.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !res.Entries[0].ReceivedAt.After(res.Entries[1].ReceivedAt) {
		t.Error("entries should be newest first")
	}
}

func TestDisabled(t *testing.T) {
	var repo Repository = Disabled{}

	if err := repo.Record(context.Background(), &Entry{}); err != nil {
		t.Errorf("Record() error = %v", err)
	}
	if _, err := repo.List(context.Background(), Filter{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("List() error = %v, want ErrDisabled", err)
	}
}
