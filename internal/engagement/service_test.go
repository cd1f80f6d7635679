package engagement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consultai/internal/domain"
	"consultai/internal/projector"
	"consultai/internal/store"
)

const testOwner = "user-1"

// newTestService wires a service to a fresh memory store with a controllable
// clock.
func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store.NewMemoryStore(), nil)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func createTestOpportunity(t *testing.T, svc *Service) *domain.Opportunity {
	t.Helper()
	opp, err := svc.CreateOpportunity(context.Background(), testOwner, CreateOpportunityInput{
		Name:        "Acme Transformation",
		ClientName:  "Acme Corp",
		Description: "Digital transformation engagement",
	})
	require.NoError(t, err)
	return opp
}

func TestService_CreateOpportunity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	opp := createTestOpportunity(t, svc)
	assert.Equal(t, domain.PhasePreAssessment, opp.CurrentPhase)
	assert.Equal(t, domain.StatusActive, opp.Status)

	// The first opportunity becomes the active one.
	ac, err := svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	require.NotNil(t, ac)
	assert.Equal(t, opp.ID, ac.Opportunity.ID)
	assert.Equal(t, opp.ID, ac.Projection.OpportunityID)
}

func TestService_CreateOpportunity_ValidationHasNoSideEffects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOpportunity(ctx, testOwner, CreateOpportunityInput{
		Name:       "No description",
		ClientName: "Acme",
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))

	opps, err := svc.ListOpportunities(ctx, testOwner)
	require.NoError(t, err)
	assert.Empty(t, opps)

	ac, err := svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, ac)
}

func TestService_AddArtifact_DefaultsToCurrentPhase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	artifact, err := svc.AddArtifact(ctx, testOwner, opp.ID, AddArtifactInput{
		Type:    "meeting_note",
		Title:   "Kickoff",
		Content: "Notes from kickoff",
		Tags:    []string{"kickoff"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePreAssessment, artifact.Phase)

	// Counts moved with the insert.
	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ArtifactsCount)
	assert.Equal(t, 1, got.PhaseProgress[domain.PhasePreAssessment].ArtifactsCount)
}

func TestService_AddArtifact_ExplicitPhase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	// Filing under a phase other than the current one is allowed.
	artifact, err := svc.AddArtifact(ctx, testOwner, opp.ID, AddArtifactInput{
		Type:    "requirement",
		Title:   "SSO required",
		Content: "All apps must support SSO",
		Phase:   "solution_design",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSolutionDesign, artifact.Phase)

	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PhaseProgress[domain.PhaseSolutionDesign].ArtifactsCount)
	assert.Equal(t, 0, got.PhaseProgress[domain.PhasePreAssessment].ArtifactsCount)
}

func TestService_AddArtifact_InvalidInputHasNoSideEffects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	tests := []struct {
		name string
		in   AddArtifactInput
	}{
		{"unknown type", AddArtifactInput{Type: "blog_post", Title: "x", Content: "y"}},
		{"empty title", AddArtifactInput{Type: "risk", Content: "y"}},
		{"unknown phase", AddArtifactInput{Type: "risk", Title: "x", Content: "y", Phase: "ideation"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddArtifact(ctx, testOwner, opp.ID, tt.in)
			require.Error(t, err)
		})
	}

	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ArtifactsCount)
}

func TestService_ChangePhase(t *testing.T) {
	svc, now := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	*now = now.Add(time.Hour)
	got, err := svc.ChangePhase(ctx, testOwner, opp.ID, "discovery")
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseDiscovery, got.CurrentPhase)
	left := got.PhaseProgress[domain.PhasePreAssessment]
	assert.Equal(t, domain.ProgressCompleted, left.Status)
	assert.Equal(t, 100, left.CompletionPercentage)
	require.NotNil(t, left.EndDate)
	assert.True(t, left.EndDate.Equal(*now))
}

func TestService_ChangePhase_InvalidTargetFailsBeforeAnyRead(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	_, err := svc.ChangePhase(ctx, testOwner, opp.ID, "ideation")
	var perr *domain.InvalidPhaseError
	require.True(t, errors.As(err, &perr))

	// Nothing moved.
	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePreAssessment, got.CurrentPhase)
}

func TestService_SetStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	got, err := svc.SetStatus(ctx, testOwner, opp.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	_, err = svc.SetStatus(ctx, testOwner, opp.ID, "paused")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestService_ActiveContext_Lifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Nothing selected: (nil, nil), not an error.
	ac, err := svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, ac)

	first := createTestOpportunity(t, svc)
	second, err := svc.CreateOpportunity(ctx, testOwner, CreateOpportunityInput{
		Name:        "Second Deal",
		ClientName:  "Beta Inc",
		Description: "Another engagement",
	})
	require.NoError(t, err)

	// Switching replaces the prior selection.
	require.NoError(t, svc.ActivateOpportunity(ctx, testOwner, second.ID))
	ac, err = svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, second.ID, ac.Opportunity.ID)

	// Deactivation is idempotent.
	require.NoError(t, svc.DeactivateOpportunity(ctx, testOwner))
	require.NoError(t, svc.DeactivateOpportunity(ctx, testOwner))
	ac, err = svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, ac)

	// Activating someone else's opportunity is indistinguishable from a
	// missing one.
	err = svc.ActivateOpportunity(ctx, "mallory", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ActiveContext_StalePointerIsCleared(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	require.NoError(t, svc.ActivateOpportunity(ctx, testOwner, opp.ID))
	require.NoError(t, svc.DeleteOpportunity(ctx, testOwner, opp.ID))

	ac, err := svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, ac)
}

func TestService_EngagementFlow(t *testing.T) {
	svc, now := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)
	assert.Equal(t, 0, opp.ArtifactsCount)

	// File a pain point during pre-assessment.
	_, err := svc.AddArtifact(ctx, testOwner, opp.ID, AddArtifactInput{
		Type:    "pain_point",
		Title:   "Manual approval bottleneck",
		Content: "Approvals take two weeks on paper",
		Phase:   "pre_assessment",
	})
	require.NoError(t, err)

	// Move on to discovery; the artifact stays filed and counted where it was.
	*now = now.Add(time.Hour)
	got, err := svc.ChangePhase(ctx, testOwner, opp.ID, "discovery")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDiscovery, got.CurrentPhase)
	assert.Equal(t, domain.ProgressCompleted, got.PhaseProgress[domain.PhasePreAssessment].Status)
	assert.Equal(t, domain.ProgressInProgress, got.PhaseProgress[domain.PhaseDiscovery].Status)
	assert.Equal(t, 1, got.PhaseProgress[domain.PhasePreAssessment].ArtifactsCount)
	assert.Equal(t, 1, got.ArtifactsCount)

	artifacts, err := svc.SearchArtifacts(ctx, testOwner, opp.ID, "bottleneck", projector.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	artifactID := artifacts[0].Artifact.ID

	// Deleting the opportunity cascades and empties the active context.
	require.NoError(t, svc.DeleteOpportunity(ctx, testOwner, opp.ID))

	ac, err := svc.GetActiveContext(ctx, testOwner)
	require.NoError(t, err)
	assert.Nil(t, ac)

	_, err = svc.GetArtifact(ctx, testOwner, artifactID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_SearchArtifacts(t *testing.T) {
	svc, now := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	add := func(typ, title, content string, tags ...string) {
		*now = now.Add(time.Minute)
		_, err := svc.AddArtifact(ctx, testOwner, opp.ID, AddArtifactInput{
			Type: typ, Title: title, Content: content, Tags: tags,
		})
		require.NoError(t, err)
	}
	add("meeting_note", "Budget discussion", "The budget cap is firm", "budget")
	add("risk", "Timeline risk", "Budget overrun would push the timeline")
	add("pain_point", "Manual invoicing", "Hours lost to manual invoice entry")

	matches, err := svc.SearchArtifacts(ctx, testOwner, opp.ID, "budget", projector.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Title+tag+content hit outranks a content-only hit.
	assert.Equal(t, "Budget discussion", matches[0].Artifact.Title)
	assert.Equal(t, "Timeline risk", matches[1].Artifact.Title)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestService_AddInsight(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	got, err := svc.AddInsight(ctx, testOwner, opp.ID, "budget is fixed")
	require.NoError(t, err)
	assert.Equal(t, []string{"budget is fixed"}, got.KeyInsights)

	// Duplicate appends are dropped.
	got, err = svc.AddInsight(ctx, testOwner, opp.ID, "budget is fixed")
	require.NoError(t, err)
	assert.Len(t, got.KeyInsights, 1)

	_, err = svc.AddInsight(ctx, testOwner, opp.ID, "")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestService_SetContextSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	opp := createTestOpportunity(t, svc)

	require.NoError(t, svc.SetContextSummary(ctx, testOwner, opp.ID, "weekly sync recap"))

	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, "weekly sync recap", got.ContextSummary)
}

func TestService_Tasks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, testOwner, CreateTaskInput{
		Title:       "Interview CTO",
		Description: "Schedule and run the interview",
		Phase:       "discovery",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTodo, task.Status)

	_, err = svc.CreateTask(ctx, testOwner, CreateTaskInput{Title: "x", Description: "y", Phase: "bogus"})
	var perr *domain.InvalidPhaseError
	require.True(t, errors.As(err, &perr))

	for i := 0; i < 3; i++ {
		_, err := svc.CreateTask(ctx, testOwner, CreateTaskInput{
			Title:       fmt.Sprintf("Task %d", i),
			Description: "work",
			Phase:       "implementation",
		})
		require.NoError(t, err)
	}

	all, err := svc.ListTasks(ctx, testOwner, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	impl, err := svc.ListTasks(ctx, testOwner, "implementation")
	require.NoError(t, err)
	assert.Len(t, impl, 3)

	_, err = svc.ListTasks(ctx, testOwner, "bogus")
	require.Error(t, err)

	updated, err := svc.UpdateTaskStatus(ctx, testOwner, task.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, updated.Status)

	_, err = svc.UpdateTaskStatus(ctx, testOwner, task.ID, "done")
	require.Error(t, err)
}
