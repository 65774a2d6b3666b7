package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/redress/internal/complaint"
)

func TestSend_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	c := &complaint.Complaint{
		ID:        "01JN123",
		Title:     "Gas leak near school",
		Status:    complaint.StatusAnalyzed,
		Category:  complaint.DeptFire,
		Urgency:   complaint.UrgencyCritical,
		Location:  "Sector 12",
		Summary:   "Strong gas smell reported near the school gate.",
		CreatedAt: time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}

	if err := n.Send(context.Background(), c); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, summary, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	// Verify header contains the title and critical emoji
	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Gas leak near school") {
		t.Errorf("header text = %q, want to contain complaint title", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Errorf("header should contain red circle for critical urgency")
	}
}

func TestSend_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Send(context.Background(), &complaint.Complaint{}); err != nil {
		t.Fatalf("Send with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_TruncatesLongSummary(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	longSummary := strings.Repeat("x", 4000)
	n := New(srv.URL)
	err := n.Send(context.Background(), &complaint.Complaint{
		ID:      "01JN456",
		Status:  complaint.StatusAnalyzed,
		Summary: longSummary,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks := got["blocks"].([]any)
	summarySection := blocks[4].(map[string]any)
	text := summarySection["text"].(map[string]any)["text"].(string)

	// Text includes the "*Summary*\n\n" prefix, so the summary portion is what follows.
	if len(text) > maxSummaryLen+len("*Summary*\n\n") {
		t.Errorf("summary text length = %d, expected <= %d", len(text), maxSummaryLen+len("*Summary*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated summary to end with ...")
	}
}

func TestUrgencyEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  complaint.Status
		urgency complaint.Urgency
		want    string
	}{
		{"failed", complaint.StatusFailed, complaint.UrgencyHigh, "\U0001f534"},
		{"critical", complaint.StatusAnalyzed, complaint.UrgencyCritical, "\U0001f534"},
		{"high", complaint.StatusAnalyzed, complaint.UrgencyHigh, "\U0001f7e1"},
		{"medium", complaint.StatusAnalyzed, complaint.UrgencyMedium, "\U0001f7e2"},
		{"empty", complaint.StatusAnalyzed, "", "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := urgencyEmoji(tt.status, tt.urgency)
			if got != tt.want {
				t.Errorf("urgencyEmoji(%q, %q) = %q, want %q", tt.status, tt.urgency, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("Pothole on main road", "Sector 9", "Large pothole causing traffic.")
	f.Add("", "", "")
	f.Add("<@U123> mention", "*bold* _italic_", "~strike~")
	f.Add("title\x00\x01\x02", "loc\nline", "summary\ttab")
	f.Add(strings.Repeat("A", 5000), "loc", strings.Repeat("x", 10000))

	f.Fuzz(func(t *testing.T, title, location, summary string) {
		c := &complaint.Complaint{
			ID:        "fuzz-id",
			Status:    complaint.StatusAnalyzed,
			Title:     title,
			Location:  location,
			Summary:   summary,
			Category:  complaint.DeptOthers,
			Urgency:   complaint.UrgencyMedium,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		// Must not panic
		msg := buildMessage(c)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		// Must round-trip
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 7 {
			t.Fatalf("blocks count = %d, want 7", len(blocks))
		}
	})
}

func TestSend_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Send(context.Background(), &complaint.Complaint{
		ID:     "01JN789",
		Status: complaint.StatusAnalyzed,
	})
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}
