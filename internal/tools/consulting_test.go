package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consultai/internal/domain"
	"consultai/internal/engagement"
	"consultai/internal/store"
)

const testOwner = "user-1"

func newConsultingRegistry(t *testing.T) (*Registry, *engagement.Service) {
	t.Helper()
	svc := engagement.NewService(store.NewMemoryStore(), nil)
	reg := NewRegistry(nil)
	require.NoError(t, RegisterConsultingTools(reg, svc, testOwner))
	return reg, svc
}

func createActiveOpportunity(t *testing.T, svc *engagement.Service) *domain.Opportunity {
	t.Helper()
	opp, err := svc.CreateOpportunity(context.Background(), testOwner, engagement.CreateOpportunityInput{
		Name:        "Acme Transformation",
		ClientName:  "Acme Corp",
		Description: "Digital transformation",
	})
	require.NoError(t, err)
	return opp
}

func TestRegisterConsultingTools(t *testing.T) {
	reg, _ := newConsultingRegistry(t)

	want := []string{
		"add_artifact",
		"add_insight",
		"change_phase",
		"create_task",
		"get_opportunity_context",
		"list_tasks",
		"search_artifacts",
		"update_task_status",
	}
	assert.Equal(t, want, reg.Names())
}

func TestConsultingTools_RequireActiveOpportunity(t *testing.T) {
	reg, _ := newConsultingRegistry(t)
	ctx := context.Background()

	for _, call := range []struct {
		tool string
		args map[string]any
	}{
		{"get_opportunity_context", map[string]any{}},
		{"search_artifacts", map[string]any{"query": "budget"}},
		{"add_artifact", map[string]any{"artifact_type": "risk", "title": "t", "content": "c"}},
		{"change_phase", map[string]any{"phase": "discovery"}},
		{"add_insight", map[string]any{"insight": "x"}},
	} {
		_, err := reg.Execute(ctx, call.tool, call.args)
		assert.ErrorIs(t, err, errNoActive, "tool %s", call.tool)
	}
}

func TestGetOpportunityContext(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()
	createActiveOpportunity(t, svc)

	result, err := reg.Execute(ctx, "get_opportunity_context", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "[CONTEXT - Current Opportunity]")
	assert.Contains(t, result.Output, "Acme Transformation")
}

func TestAddArtifactTool(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()
	opp := createActiveOpportunity(t, svc)

	result, err := reg.Execute(ctx, "add_artifact", map[string]any{
		"artifact_type": "pain_point",
		"title":         "Manual invoicing",
		"content":       "Hours lost to manual entry",
		"tags":          "finance, invoicing",
	})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Output), &out))
	require.NotEmpty(t, out["artifact_id"])

	// Tool writes go through the service, so provenance and counts hold.
	artifact, err := svc.GetArtifact(ctx, testOwner, out["artifact_id"])
	require.NoError(t, err)
	assert.Equal(t, "assistant", artifact.CreatedBy)
	assert.Equal(t, []string{"finance", "invoicing"}, artifact.Tags)

	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ArtifactsCount)
}

func TestSearchArtifactsTool(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()
	opp := createActiveOpportunity(t, svc)

	_, err := svc.AddArtifact(ctx, testOwner, opp.ID, engagement.AddArtifactInput{
		Type: "meeting_note", Title: "Budget discussion", Content: "the cap is firm",
	})
	require.NoError(t, err)

	result, err := reg.Execute(ctx, "search_artifacts", map[string]any{"query": "budget"})
	require.NoError(t, err)

	var out struct {
		Count   int `json:"count"`
		Results []struct {
			Title string `json:"title"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Output), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Budget discussion", out.Results[0].Title)
}

func TestSearchArtifactsTool_RejectsNonStringQuery(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()
	createActiveOpportunity(t, svc)

	// A numeric query is a malformed call, not an empty search.
	_, err := reg.Execute(ctx, "search_artifacts", map[string]any{"query": float64(3)})
	assert.ErrorIs(t, err, ErrInvalidArgType)
}

func TestChangePhaseTool(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()
	opp := createActiveOpportunity(t, svc)

	_, err := reg.Execute(ctx, "change_phase", map[string]any{"phase": "discovery"})
	require.NoError(t, err)

	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDiscovery, got.CurrentPhase)

	// An invalid phase surfaces as a tool error, nothing moves.
	_, err = reg.Execute(ctx, "change_phase", map[string]any{"phase": "ideation"})
	require.Error(t, err)
	got, err = svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDiscovery, got.CurrentPhase)
}

func TestAddInsightTool(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()
	opp := createActiveOpportunity(t, svc)

	result, err := reg.Execute(ctx, "add_insight", map[string]any{"insight": "budget is fixed"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "insight recorded")

	got, err := svc.GetOpportunity(ctx, testOwner, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget is fixed"}, got.KeyInsights)
}

func TestTaskTools(t *testing.T) {
	reg, svc := newConsultingRegistry(t)
	ctx := context.Background()

	result, err := reg.Execute(ctx, "create_task", map[string]any{
		"title":       "Interview CTO",
		"description": "Schedule and run the interview",
		"phase":       "discovery",
	})
	require.NoError(t, err)

	var created map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Output), &created))
	taskID := created["task_id"]
	require.NotEmpty(t, taskID)

	result, err = reg.Execute(ctx, "list_tasks", map[string]any{"phase": "discovery"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "Interview CTO")

	result, err = reg.Execute(ctx, "update_task_status", map[string]any{
		"task_id": taskID,
		"status":  "completed",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Output, "completed")

	task, err := svc.ListTasks(ctx, testOwner, "discovery")
	require.NoError(t, err)
	require.Len(t, task, 1)
	assert.Equal(t, domain.TaskCompleted, task[0].Status)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a , b "))
	assert.Nil(t, splitCSV("  "))
	assert.Equal(t, []string{"one"}, splitCSV("one,,"))
}
