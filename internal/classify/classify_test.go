package classify

import (
	"testing"

	"github.com/linnemanlabs/redress/internal/complaint"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_TrainsFromEmbeddedCorpus(t *testing.T) {
	t.Parallel()

	c := newClassifier(t)
	if c.category.totalDocs == 0 {
		t.Error("category model is untrained")
	}
	if c.urgency.totalDocs == 0 {
		t.Error("urgency model is untrained")
	}
	if len(c.keywords) == 0 {
		t.Error("no critical keywords loaded")
	}
}

func TestTriage_ShortInputDefaults(t *testing.T) {
	t.Parallel()

	c := newClassifier(t)

	// Below the length floor even keyword matches are ignored.
	for _, text := range []string{"", "fire", "gas", "a b"} {
		dept, urg := c.Triage(text)
		if dept != complaint.DeptOthers {
			t.Errorf("Triage(%q) dept = %q, want Others", text, dept)
		}
		if urg != complaint.UrgencyMedium {
			t.Errorf("Triage(%q) urgency = %q, want MEDIUM", text, urg)
		}
	}
}

func TestUrgencyOf_CriticalKeywordOverride(t *testing.T) {
	t.Parallel()

	c := newClassifier(t)

	tests := []string{
		"gas leak smell in building",
		"huge FIRE in the warehouse",
		"blast sound from the transformer",
		"a man is dead on the road",
		"blood on the pavement after the crash",
	}
	for _, text := range tests {
		if got := c.UrgencyOf(text); got != complaint.UrgencyCritical {
			t.Errorf("UrgencyOf(%q) = %q, want CRITICAL", text, got)
		}
	}
}

func TestCategorize_KnownPatterns(t *testing.T) {
	t.Parallel()

	c := newClassifier(t)

	tests := []struct {
		text string
		want complaint.Department
	}{
		{"Potholes on the main road towards the airport are causing accidents", complaint.DeptPWD},
		{"Power cut in our area for the last 6 hours without any notice", complaint.DeptElectricity},
		{"Broken sewage pipe overflow on street", complaint.DeptWater},
		{"Huge fire in the chemical warehouse", complaint.DeptFire},
		{"Chain snatching incident at the corner", complaint.DeptPolice},
		{"Doctors not available at primary health center", complaint.DeptHealth},
		{"Bus drivers are driving very rashly", complaint.DeptTransport},
	}
	for _, tt := range tests {
		if got := c.Categorize(tt.text); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestCategorize_AlwaysKnownDepartment(t *testing.T) {
	t.Parallel()

	c := newClassifier(t)

	for _, text := range []string{
		"zxqwv plmok unseen gibberish tokens",
		"complaint about something entirely unrelated",
	} {
		got := c.Categorize(text)
		if !complaint.ValidDepartment(got) {
			t.Errorf("Categorize(%q) = %q, not a known department", text, got)
		}
	}
}

func TestTriage_Deterministic(t *testing.T) {
	t.Parallel()

	c := newClassifier(t)

	text := "Street light is not working and sparks are visible at night"
	dept1, urg1 := c.Triage(text)
	for i := 0; i < 10; i++ {
		dept, urg := c.Triage(text)
		if dept != dept1 || urg != urg1 {
			t.Fatalf("run %d: (%q, %q) != first run (%q, %q)", i, dept, urg, dept1, urg1)
		}
	}
}

func TestModel_TieBreaksToFirstLabel(t *testing.T) {
	t.Parallel()

	m := newModel()
	m.train("aaa bbb", "First")
	m.train("aaa bbb", "Second")

	// An unseen token scores identically for both labels.
	if got := m.classify("zzz"); got != "First" {
		t.Errorf("classify = %q, want first-registered label on tie", got)
	}
}

func TestModel_Untrained(t *testing.T) {
	t.Parallel()

	m := newModel()
	if got := m.classify("anything"); got != "" {
		t.Errorf("classify on untrained model = %q, want empty", got)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"pipe-burst near sector 12", []string{"pipe", "burst", "near", "sector", "12"}},
		{"   ", nil},
		{"ONE", []string{"one"}},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func BenchmarkTriage(b *testing.B) {
	c, err := New()
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	text := "A main water pipe burst and is flooding the street near the market"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Triage(text)
	}
}
