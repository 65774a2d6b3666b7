package complaint

import "time"

// Status tracks where a complaint is in its lifecycle.
type Status string

const (
	// StatusRaw means submitted, not yet picked up by the analysis worker.
	StatusRaw Status = "RAW"

	// StatusPending is never persisted; it annotates the raw fallback view
	// served while no analyzed record exists yet.
	StatusPending Status = "PENDING"

	// StatusAnalyzed means category, urgency and summary have been assigned.
	StatusAnalyzed Status = "ANALYZED"

	// StatusFailed means classification errored. Terminal but reprocessable.
	StatusFailed Status = "FAILED"

	// StatusResolved means a department closed the complaint with proof.
	StatusResolved Status = "RESOLVED"
)

// Urgency is the severity label assigned during triage.
type Urgency string

const (
	UrgencyLow      Urgency = "LOW"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

// Urgencies lists all known urgency levels.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

// ValidUrgency reports whether u names a known urgency level.
func ValidUrgency(u Urgency) bool {
	for _, known := range Urgencies {
		if u == known {
			return true
		}
	}
	return false
}

// Department is the closed set of operational units that own resolution.
type Department string

const (
	DeptPWD         Department = "PWD"
	DeptPolice      Department = "Police"
	DeptFire        Department = "Fire"
	DeptHealth      Department = "Health"
	DeptElectricity Department = "Electricity"
	DeptWater       Department = "Water & Sewage"
	DeptTransport   Department = "Transport"
	DeptOthers      Department = "Others"
)

// Departments lists all known departments in registration order.
var Departments = []Department{
	DeptPWD, DeptPolice, DeptFire, DeptHealth,
	DeptElectricity, DeptWater, DeptTransport, DeptOthers,
}

// ValidDepartment reports whether d names a known department.
func ValidDepartment(d Department) bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// Complaint is the central entity, tracked from intake to resolution.
// Fields are append-only once set; only Category and Urgency may be
// overwritten, by an administrative reassignment.
type Complaint struct {
	ID             string     `json:"complaintId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	SubmitterID    string     `json:"submitterId"`
	SubmitterName  string     `json:"submitterName,omitempty"`
	SubmitterEmail string     `json:"submitterEmail,omitempty"`
	Category       Department `json:"category,omitempty"`
	Urgency        Urgency    `json:"urgency,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	IsLegitimate   *bool      `json:"isLegitimate,omitempty"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`

	// Set on manual reassignment by an administrator.
	AssignedBy string    `json:"assignedBy,omitempty"`
	AssignedAt time.Time `json:"assignmentTimestamp,omitzero"`

	// Set on resolution by a department member.
	ResolvedBy           string    `json:"resolvedBy,omitempty"`
	ResolutionDepartment string    `json:"resolutionDept,omitempty"`
	ResolvedAt           time.Time `json:"resolutionTimestamp,omitzero"`
	ProofURL             string    `json:"proofUrl,omitempty"`

	// Revision is maintained by the store and backs optional
	// compare-and-swap writes. Not part of the document payload.
	Revision int64 `json:"-"`
}

// Triaged reports whether official triage fields are already present,
// either from classification or supplied trusted at submission.
func (c *Complaint) Triaged() bool {
	return c.Category != "" && c.Urgency != ""
}

// Submission is the intake payload for a new complaint.
type Submission struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`

	// Optional pre-assigned triage verdict from a trusted client-side
	// step. When both Category and Urgency are present the analysis
	// worker fast-tracks the record without reclassifying.
	Category Department `json:"category,omitempty"`
	Urgency  Urgency    `json:"urgency,omitempty"`
	Summary  string     `json:"summary,omitempty"`
}

// Summary is the enrichment returned by the external AI summarizer.
type Summary struct {
	Summary         string `json:"summary"`
	IsLegitimate    bool   `json:"is_legitimate"`
	ImprovementHint string `json:"improvement_hint,omitempty"`
}
