// Package domain holds the opportunity/phase/artifact model for consulting
// engagements: entity types, their invariants, the phase state machine, and
// the shared error taxonomy. Construction validates input before anything
// reaches storage; the store and engagement layers never see a half-built
// entity.
package domain

import (
	"sort"
	"strings"
	"time"
)

// OpportunityStatus is the overall engagement status. Completion is governed
// by status, not by phase; implementation is simply the last phase.
type OpportunityStatus string

const (
	StatusActive    OpportunityStatus = "active"
	StatusCompleted OpportunityStatus = "completed"
	StatusArchived  OpportunityStatus = "archived"
)

// ArtifactType classifies documents filed against an opportunity.
type ArtifactType string

const (
	ArtifactMeetingNote     ArtifactType = "meeting_note"
	ArtifactPainPoint       ArtifactType = "pain_point"
	ArtifactProcessMap      ArtifactType = "process_map"
	ArtifactRequirement     ArtifactType = "requirement"
	ArtifactRisk            ArtifactType = "risk"
	ArtifactDeliverable     ArtifactType = "deliverable"
	ArtifactStakeholderNote ArtifactType = "stakeholder_note"
	ArtifactOther           ArtifactType = "other"
)

// ArtifactTypes lists the full enumerated set.
var ArtifactTypes = []ArtifactType{
	ArtifactMeetingNote,
	ArtifactPainPoint,
	ArtifactProcessMap,
	ArtifactRequirement,
	ArtifactRisk,
	ArtifactDeliverable,
	ArtifactStakeholderNote,
	ArtifactOther,
}

// Valid reports whether the type is in the enumerated set.
func (t ArtifactType) Valid() bool {
	for _, known := range ArtifactTypes {
		if known == t {
			return true
		}
	}
	return false
}

// PhaseProgress is the bookkeeping record for one phase of one opportunity.
// Keyed by (opportunity, phase); every opportunity has exactly one row per
// defined phase from creation onward.
type PhaseProgress struct {
	Phase     Phase          `json:"phase"`
	Status    ProgressStatus `json:"status"`
	StartDate *time.Time     `json:"startDate,omitempty"`
	EndDate   *time.Time     `json:"endDate,omitempty"`

	// ArtifactsCount mirrors the number of artifacts filed under this phase.
	// Maintained by transactional increment in the store; never drifts from
	// the artifact set it reflects.
	ArtifactsCount int `json:"artifactsCount"`

	// CompletionPercentage is opaque pass-through data (0-100).
	CompletionPercentage int `json:"completionPercentage"`
}

// Opportunity is a tracked consulting engagement. Owned by exactly one user;
// mutated only through the engagement service.
type Opportunity struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"-"`
	Name         string            `json:"name"`
	ClientName   string            `json:"clientName"`
	Description  string            `json:"description"`
	CurrentPhase Phase             `json:"currentPhase"`
	Status       OpportunityStatus `json:"status"`
	Stakeholders []string          `json:"stakeholders"`

	// KeyInsights is append-only; duplicates are dropped on append.
	KeyInsights    []string `json:"keyInsights"`
	ContextSummary string   `json:"contextSummary"`

	PhaseProgress map[Phase]*PhaseProgress `json:"phaseProgress"`

	// ArtifactsCount mirrors the total artifact count across all phases.
	ArtifactsCount int `json:"artifactsCount"`

	CreatedAt time.Time `json:"createdAt"`
}

// Artifact is a typed document filed against an opportunity and a phase.
// Never mutated after creation; destroyed only by cascade when the owning
// opportunity is deleted.
type Artifact struct {
	ID            string       `json:"id"`
	OpportunityID string       `json:"opportunityId"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Type          ArtifactType `json:"artifactType"`

	// Phase the artifact is filed under. Need not equal the opportunity's
	// current phase; artifacts accumulate per phase after the engagement
	// has moved on.
	Phase Phase `json:"phase"`

	Tags      []string  `json:"tags"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskStatus tracks a consulting task through its lifecycle.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// ParseTaskStatus validates a raw status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskTodo, TaskInProgress, TaskCompleted:
		return TaskStatus(s), nil
	}
	return "", &ValidationError{Field: "status", Reason: "must be todo, in_progress, or completed"}
}

// Task is a lightweight work item tied to a delivery phase.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Phase       Phase      `json:"phase"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ========== Constructors ==========

// NewOpportunity validates input and returns a fully initialized opportunity:
// current phase set to the first phase, one progress row per defined phase,
// the first in_progress and the rest not_started.
func NewOpportunity(ownerID, name, clientName, description string, stakeholders []string, now time.Time) (*Opportunity, error) {
	if err := requireText("name", name); err != nil {
		return nil, err
	}
	if err := requireText("clientName", clientName); err != nil {
		return nil, err
	}
	if err := requireText("description", description); err != nil {
		return nil, err
	}
	if err := requireText("ownerId", ownerID); err != nil {
		return nil, err
	}

	progress := make(map[Phase]*PhaseProgress, len(Phases))
	for _, p := range Phases {
		row := &PhaseProgress{Phase: p, Status: ProgressNotStarted}
		if p == InitialPhase {
			row.Status = ProgressInProgress
			start := now
			row.StartDate = &start
		}
		progress[p] = row
	}

	return &Opportunity{
		ID:            NewOpportunityID(),
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(name),
		ClientName:    strings.TrimSpace(clientName),
		Description:   strings.TrimSpace(description),
		CurrentPhase:  InitialPhase,
		Status:        StatusActive,
		Stakeholders:  append([]string(nil), stakeholders...),
		KeyInsights:   []string{},
		PhaseProgress: progress,
		CreatedAt:     now,
	}, nil
}

// NewArtifact validates input and constructs the artifact value. It does not
// touch any counts; the engagement service owns the atomic increment that
// accompanies persistence.
func NewArtifact(opportunityID string, typ ArtifactType, title, content string, phase Phase, tags []string, createdBy string, now time.Time) (*Artifact, error) {
	if !typ.Valid() {
		return nil, &ValidationError{Field: "artifactType", Reason: "unknown type " + string(typ)}
	}
	if err := requireText("title", title); err != nil {
		return nil, err
	}
	if err := requireText("content", content); err != nil {
		return nil, err
	}
	if !phase.Valid() {
		return nil, &InvalidPhaseError{Phase: string(phase)}
	}

	return &Artifact{
		ID:            NewArtifactID(),
		OpportunityID: opportunityID,
		Title:         strings.TrimSpace(title),
		Content:       content,
		Type:          typ,
		Phase:         phase,
		Tags:          NormalizeTags(tags),
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}, nil
}

// NewTask validates input and constructs a task in the todo state.
func NewTask(ownerID, title, description string, phase Phase, now time.Time) (*Task, error) {
	if err := requireText("title", title); err != nil {
		return nil, err
	}
	if err := requireText("description", description); err != nil {
		return nil, err
	}
	if !phase.Valid() {
		return nil, &InvalidPhaseError{Phase: string(phase)}
	}
	return &Task{
		ID:          NewTaskID(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Phase:       phase,
		Status:      TaskTodo,
		CreatedAt:   now,
	}, nil
}

// AddInsight appends an insight, dropping exact duplicates.
func (o *Opportunity) AddInsight(insight string) {
	insight = strings.TrimSpace(insight)
	if insight == "" {
		return
	}
	for _, existing := range o.KeyInsights {
		if existing == insight {
			return
		}
	}
	o.KeyInsights = append(o.KeyInsights, insight)
}

// NormalizeTags trims, drops empties, collapses duplicates, and sorts.
// Tag order carries no meaning, so sorted storage keeps output stable.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy. The memory backend hands out clones so callers
// can never mutate stored state behind the store's back.
func (o *Opportunity) Clone() *Opportunity {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Stakeholders = append([]string(nil), o.Stakeholders...)
	cp.KeyInsights = append([]string(nil), o.KeyInsights...)
	cp.PhaseProgress = make(map[Phase]*PhaseProgress, len(o.PhaseProgress))
	for p, row := range o.PhaseProgress {
		rowCopy := *row
		if row.StartDate != nil {
			t := *row.StartDate
			rowCopy.StartDate = &t
		}
		if row.EndDate != nil {
			t := *row.EndDate
			rowCopy.EndDate = &t
		}
		cp.PhaseProgress[p] = &rowCopy
	}
	return &cp
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Tags = append([]string(nil), a.Tags...)
	return &cp
}

// Clone returns a copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
