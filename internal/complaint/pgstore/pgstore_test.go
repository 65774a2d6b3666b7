package pgstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/redress/internal/complaint"
	"github.com/linnemanlabs/redress/internal/complaint/pgstore"
	"github.com/linnemanlabs/redress/internal/postgres"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("REDRESS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("REDRESS_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func testID(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := testID(t)

	now := time.Now().Truncate(time.Microsecond).UTC()
	c := &complaint.Complaint{
		ID:          id,
		SubmitterID: "user-1",
		Title:       "Streetlight out",
		Description: "The light on Oak St has been dark for a week",
		Location:    "Oak St & 3rd",
		Status:      complaint.StatusRaw,
		CreatedAt:   now,
	}

	if err := s.Put(ctx, complaint.NamespaceRaw, id, c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, complaint.NamespaceRaw, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	if got.ID != c.ID || got.SubmitterID != c.SubmitterID || got.Title != c.Title {
		t.Errorf("document mismatch: got %+v", got)
	}
	if got.Status != complaint.StatusRaw {
		t.Errorf("Status = %q, want RAW", got.Status)
	}
	if got.Revision != 1 {
		t.Errorf("Revision = %d, want 1", got.Revision)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, complaint.NamespaceRaw, "nonexistent-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for nonexistent ID")
	}
}

func TestNamespaceIsolation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := testID(t)

	raw := &complaint.Complaint{ID: id, Status: complaint.StatusRaw, Title: "raw side"}
	if err := s.Put(ctx, complaint.NamespaceRaw, id, raw); err != nil {
		t.Fatalf("Put raw: %v", err)
	}

	_, ok, err := s.Get(ctx, complaint.NamespaceAnalyzed, id)
	if err != nil {
		t.Fatalf("Get analyzed: %v", err)
	}
	if ok {
		t.Error("raw document visible through analyzed namespace")
	}
}

func TestUpsertBumpsRevision(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := testID(t)

	c := &complaint.Complaint{ID: id, Status: complaint.StatusRaw, Title: "v1"}
	if err := s.Put(ctx, complaint.NamespaceRaw, id, c); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	c.Title = "v2"
	if err := s.Put(ctx, complaint.NamespaceRaw, id, c); err != nil {
		t.Fatalf("Put v2: %v", err)
	}

	got, ok, err := s.Get(ctx, complaint.NamespaceRaw, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Title != "v2" {
		t.Errorf("Title = %q, want v2", got.Title)
	}
	if got.Revision != 2 {
		t.Errorf("Revision = %d, want 2", got.Revision)
	}
}

func TestPutRev(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := testID(t)

	c := &complaint.Complaint{ID: id, Status: complaint.StatusRaw, Title: "v1"}

	// Create with expected revision 0.
	if err := s.PutRev(ctx, complaint.NamespaceRaw, id, c, 0); err != nil {
		t.Fatalf("PutRev create: %v", err)
	}

	// A second create must conflict.
	if err := s.PutRev(ctx, complaint.NamespaceRaw, id, c, 0); !errors.Is(err, complaint.ErrConflict) {
		t.Errorf("PutRev duplicate create: err = %v, want ErrConflict", err)
	}

	// Update at the current revision succeeds.
	c.Title = "v2"
	if err := s.PutRev(ctx, complaint.NamespaceRaw, id, c, 1); err != nil {
		t.Fatalf("PutRev update: %v", err)
	}

	// Update at a stale revision conflicts and leaves the doc untouched.
	c.Title = "v3"
	if err := s.PutRev(ctx, complaint.NamespaceRaw, id, c, 1); !errors.Is(err, complaint.ErrConflict) {
		t.Errorf("PutRev stale: err = %v, want ErrConflict", err)
	}

	got, ok, err := s.Get(ctx, complaint.NamespaceRaw, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Title != "v2" || got.Revision != 2 {
		t.Errorf("got Title=%q Revision=%d, want v2 at revision 2", got.Title, got.Revision)
	}
}

func TestListIDs(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	prefix := testID(t) + "-"
	for _, suffix := range []string{"b", "a", "c"} {
		c := &complaint.Complaint{ID: prefix + suffix, Status: complaint.StatusRaw}
		if err := s.Put(ctx, complaint.NamespaceRaw, c.ID, c); err != nil {
			t.Fatalf("Put %s: %v", c.ID, err)
		}
	}

	ids, err := s.ListIDs(ctx, complaint.NamespaceRaw, prefix)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ListIDs returned %d ids, want 3: %v", len(ids), ids)
	}
	for i, want := range []string{prefix + "a", prefix + "b", prefix + "c"} {
		if ids[i] != want {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want)
		}
	}
}
