package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/linnemanlabs/redress/internal/complaint"
)

func TestStore_PutAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	c := &complaint.Complaint{ID: "c-1", Title: "Pothole", Status: complaint.StatusRaw}
	if err := s.Put(ctx, complaint.NamespaceRaw, "c-1", c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, complaint.NamespaceRaw, "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected document to be found")
	}
	if got.ID != "c-1" {
		t.Errorf("ID = %q, want %q", got.ID, "c-1")
	}
	if got.Revision != 1 {
		t.Errorf("Revision = %d, want 1", got.Revision)
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.Get(context.Background(), complaint.NamespaceRaw, "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_NamespaceIsolation(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	raw := &complaint.Complaint{ID: "c-1", Status: complaint.StatusRaw}
	analyzed := &complaint.Complaint{ID: "c-1", Status: complaint.StatusAnalyzed}

	if err := s.Put(ctx, complaint.NamespaceRaw, "c-1", raw); err != nil {
		t.Fatalf("Put raw: %v", err)
	}
	if err := s.Put(ctx, complaint.NamespaceAnalyzed, "c-1", analyzed); err != nil {
		t.Fatalf("Put analyzed: %v", err)
	}

	gotRaw, _, _ := s.Get(ctx, complaint.NamespaceRaw, "c-1")
	gotAnalyzed, _, _ := s.Get(ctx, complaint.NamespaceAnalyzed, "c-1")
	if gotRaw.Status != complaint.StatusRaw {
		t.Errorf("raw status = %q, want RAW", gotRaw.Status)
	}
	if gotAnalyzed.Status != complaint.StatusAnalyzed {
		t.Errorf("analyzed status = %q, want ANALYZED", gotAnalyzed.Status)
	}
}

func TestStore_PutBumpsRevision(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	c := &complaint.Complaint{ID: "c-1", Status: complaint.StatusRaw}

	for want := int64(1); want <= 3; want++ {
		if err := s.Put(ctx, complaint.NamespaceRaw, "c-1", c); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, _, _ := s.Get(ctx, complaint.NamespaceRaw, "c-1")
		if got.Revision != want {
			t.Errorf("Revision = %d, want %d", got.Revision, want)
		}
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Put(ctx, complaint.NamespaceRaw, "c-1", &complaint.Complaint{ID: "c-1", Title: "original"})

	got, _, _ := s.Get(ctx, complaint.NamespaceRaw, "c-1")
	got.Title = "mutated"

	again, _, _ := s.Get(ctx, complaint.NamespaceRaw, "c-1")
	if again.Title != "original" {
		t.Errorf("Title = %q, caller mutation leaked into the store", again.Title)
	}
}

func TestStore_PutRev(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	c := &complaint.Complaint{ID: "c-1", Status: complaint.StatusAnalyzed}

	// Create: expected 0 when the document does not exist.
	if err := s.PutRev(ctx, complaint.NamespaceAnalyzed, "c-1", c, 0); err != nil {
		t.Fatalf("PutRev create: %v", err)
	}

	// Create again must conflict.
	if err := s.PutRev(ctx, complaint.NamespaceAnalyzed, "c-1", c, 0); !errors.Is(err, complaint.ErrConflict) {
		t.Errorf("duplicate create err = %v, want ErrConflict", err)
	}

	// Update with correct revision.
	if err := s.PutRev(ctx, complaint.NamespaceAnalyzed, "c-1", c, 1); err != nil {
		t.Fatalf("PutRev update: %v", err)
	}

	// Stale revision must conflict.
	if err := s.PutRev(ctx, complaint.NamespaceAnalyzed, "c-1", c, 1); !errors.Is(err, complaint.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}

	// Update to a missing document with non-zero revision must conflict.
	if err := s.PutRev(ctx, complaint.NamespaceAnalyzed, "ghost", c, 3); !errors.Is(err, complaint.ErrConflict) {
		t.Errorf("missing doc err = %v, want ErrConflict", err)
	}
}

func TestStore_ListIDs(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for _, id := range []string{"b-2", "a-1", "a-3"} {
		_ = s.Put(ctx, complaint.NamespaceRaw, id, &complaint.Complaint{ID: id})
	}

	all, err := s.ListIDs(ctx, complaint.NamespaceRaw, "")
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if fmt.Sprint(all) != "[a-1 a-3 b-2]" {
		t.Errorf("all ids = %v, want sorted [a-1 a-3 b-2]", all)
	}

	prefixed, err := s.ListIDs(ctx, complaint.NamespaceRaw, "a-")
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if fmt.Sprint(prefixed) != "[a-1 a-3]" {
		t.Errorf("prefixed ids = %v, want [a-1 a-3]", prefixed)
	}

	empty, err := s.ListIDs(ctx, complaint.NamespaceAnalyzed, "")
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty namespace ids = %v, want none", empty)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			_ = s.Put(ctx, complaint.NamespaceRaw, id, &complaint.Complaint{ID: id})
			_, _, _ = s.Get(ctx, complaint.NamespaceRaw, id)
			_, _ = s.ListIDs(ctx, complaint.NamespaceRaw, "")
		}(i)
	}
	wg.Wait()

	ids, _ := s.ListIDs(ctx, complaint.NamespaceRaw, "")
	if len(ids) != 20 {
		t.Errorf("ids = %d, want 20", len(ids))
	}
}
