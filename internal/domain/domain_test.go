package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewOpportunity(t *testing.T) {
	opp, err := NewOpportunity("user-1", "Acme Transformation", "Acme Corp", "Digital transformation", []string{"CTO"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, "user-1", opp.OwnerID)
	assert.Equal(t, "Acme Transformation", opp.Name)
	assert.Equal(t, StatusActive, opp.Status)
	assert.Equal(t, InitialPhase, opp.CurrentPhase)
	assert.Equal(t, 0, opp.ArtifactsCount)
	assert.Contains(t, opp.ID, "opp_")

	// One progress row per phase; first in_progress with a start date, the
	// rest untouched.
	require.Len(t, opp.PhaseProgress, len(Phases))
	first := opp.PhaseProgress[InitialPhase]
	require.NotNil(t, first)
	assert.Equal(t, ProgressInProgress, first.Status)
	require.NotNil(t, first.StartDate)
	assert.True(t, first.StartDate.Equal(testNow))

	for _, p := range Phases[1:] {
		row := opp.PhaseProgress[p]
		require.NotNil(t, row)
		assert.Equal(t, ProgressNotStarted, row.Status)
		assert.Nil(t, row.StartDate)
		assert.Nil(t, row.EndDate)
	}
}

func TestNewOpportunity_Validation(t *testing.T) {
	tests := []struct {
		name    string
		ownerID string
		oppName string
		client  string
		desc    string
		field   string
	}{
		{"empty name", "user-1", "", "Acme", "desc", "name"},
		{"whitespace name", "user-1", "   ", "Acme", "desc", "name"},
		{"empty client", "user-1", "Deal", "", "desc", "clientName"},
		{"empty description", "user-1", "Deal", "Acme", "", "description"},
		{"empty owner", "", "Deal", "Acme", "desc", "ownerId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOpportunity(tt.ownerID, tt.oppName, tt.client, tt.desc, nil, testNow)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewArtifact(t *testing.T) {
	artifact, err := NewArtifact("opp_1", ArtifactMeetingNote, "  Kickoff  ", "Notes from kickoff", PhaseDiscovery,
		[]string{"kickoff", "", "kickoff", "scope"}, "assistant", testNow)
	require.NoError(t, err)

	assert.Contains(t, artifact.ID, "artifact_")
	assert.Equal(t, "Kickoff", artifact.Title)
	assert.Equal(t, PhaseDiscovery, artifact.Phase)
	assert.Equal(t, "assistant", artifact.CreatedBy)
	// Tags are trimmed, deduplicated, and sorted.
	assert.Equal(t, []string{"kickoff", "scope"}, artifact.Tags)
}

func TestNewArtifact_Validation(t *testing.T) {
	_, err := NewArtifact("opp_1", "blog_post", "Title", "Body", PhaseDiscovery, nil, "", testNow)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "artifactType", verr.Field)

	_, err = NewArtifact("opp_1", ArtifactRisk, "", "Body", PhaseDiscovery, nil, "", testNow)
	require.True(t, errors.As(err, &verr))

	_, err = NewArtifact("opp_1", ArtifactRisk, "Title", "Body", "ideation", nil, "", testNow)
	var perr *InvalidPhaseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "ideation", perr.Phase)
}

func TestNewTask(t *testing.T) {
	task, err := NewTask("user-1", "Interview CTO", "Schedule and run the interview", PhasePreAssessment, testNow)
	require.NoError(t, err)
	assert.Contains(t, task.ID, "task_")
	assert.Equal(t, TaskTodo, task.Status)

	_, err = NewTask("user-1", "Interview CTO", "desc", "not_a_phase", testNow)
	var perr *InvalidPhaseError
	require.True(t, errors.As(err, &perr))
}

func TestParseTaskStatus(t *testing.T) {
	for _, valid := range []string{"todo", "in_progress", "completed"} {
		st, err := ParseTaskStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, TaskStatus(valid), st)
	}

	_, err := ParseTaskStatus("done")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestAddInsight_DropsDuplicates(t *testing.T) {
	opp, err := NewOpportunity("user-1", "Deal", "Acme", "desc", nil, testNow)
	require.NoError(t, err)

	opp.AddInsight("budget is fixed")
	opp.AddInsight("budget is fixed")
	opp.AddInsight("  budget is fixed  ")
	opp.AddInsight("")
	opp.AddInsight("CTO is the decision maker")

	assert.Equal(t, []string{"budget is fixed", "CTO is the decision maker"}, opp.KeyInsights)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{"b", " a ", "b", ""}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestOpportunityClone_IsDeep(t *testing.T) {
	opp, err := NewOpportunity("user-1", "Deal", "Acme", "desc", []string{"CTO"}, testNow)
	require.NoError(t, err)
	opp.AddInsight("one")

	cp := opp.Clone()
	cp.Stakeholders[0] = "CFO"
	cp.KeyInsights[0] = "changed"
	cp.PhaseProgress[InitialPhase].Status = ProgressCompleted
	end := testNow.Add(time.Hour)
	cp.PhaseProgress[InitialPhase].EndDate = &end

	assert.Equal(t, "CTO", opp.Stakeholders[0])
	assert.Equal(t, "one", opp.KeyInsights[0])
	assert.Equal(t, ProgressInProgress, opp.PhaseProgress[InitialPhase].Status)
	assert.Nil(t, opp.PhaseProgress[InitialPhase].EndDate)
}

func TestErrorTaxonomy(t *testing.T) {
	verr := &ValidationError{Field: "name", Reason: "must not be empty"}
	assert.Contains(t, verr.Error(), "name")

	perr := &InvalidPhaseError{Phase: "bogus"}
	assert.Contains(t, perr.Error(), "bogus")

	assert.NotErrorIs(t, ErrNotFound, ErrConflict)
	assert.NotErrorIs(t, ErrConflict, ErrUnavailable)
}
