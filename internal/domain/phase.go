package domain

import "time"

// Phase is one stage in the fixed delivery sequence.
type Phase string

const (
	PhasePreAssessment  Phase = "pre_assessment"
	PhaseDiscovery      Phase = "discovery"
	PhaseSolutionDesign Phase = "solution_design"
	PhaseImplementation Phase = "implementation"
)

// Phases lists every phase in delivery order. The order matters for
// past/current/future comparisons; do not reorder.
var Phases = []Phase{
	PhasePreAssessment,
	PhaseDiscovery,
	PhaseSolutionDesign,
	PhaseImplementation,
}

// InitialPhase is where every new opportunity starts.
const InitialPhase = PhasePreAssessment

// ParsePhase validates a raw phase string against the defined set.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == s {
			return p, nil
		}
	}
	return "", &InvalidPhaseError{Phase: s}
}

// Index returns the position of the phase in the delivery order,
// or -1 if the phase is not in the defined set.
func (p Phase) Index() int {
	for i, known := range Phases {
		if known == p {
			return i
		}
	}
	return -1
}

// Valid reports whether the phase is a member of the defined set.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// ProgressStatus tracks how far along a single phase is.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// TransitionPhase moves the opportunity to target and updates the progress
// bookkeeping in place. Jumps in either direction are allowed; only the
// target's membership in the defined set is checked.
//
// Rules:
//   - the phase being left goes in_progress -> completed (untouched phases
//     are never silently marked completed)
//   - the phase being entered goes not_started -> in_progress, with its
//     StartDate set on first entry only
//   - re-entering a completed phase keeps its status, dates, and
//     completion percentage
func TransitionPhase(opp *Opportunity, target Phase, now time.Time) error {
	if !target.Valid() {
		return &InvalidPhaseError{Phase: string(target)}
	}
	if target == opp.CurrentPhase {
		return nil
	}

	if left, ok := opp.PhaseProgress[opp.CurrentPhase]; ok && left.Status == ProgressInProgress {
		left.Status = ProgressCompleted
		left.EndDate = &now
		left.CompletionPercentage = 100
	}

	if entered, ok := opp.PhaseProgress[target]; ok && entered.Status == ProgressNotStarted {
		entered.Status = ProgressInProgress
		if entered.StartDate == nil {
			start := now
			entered.StartDate = &start
		}
	}

	opp.CurrentPhase = target
	return nil
}
