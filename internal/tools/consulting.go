package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"consultai/internal/domain"
	"consultai/internal/engagement"
	"consultai/internal/projector"
)

// Binding ties the consulting tool set to one owner. The owner id comes from
// the authenticated session, never from model-supplied arguments, so a tool
// call can only ever touch the caller's own data.
type Binding struct {
	svc     *engagement.Service
	ownerID string
}

// RegisterConsultingTools registers the full consulting tool set for one
// owner on the given registry.
func RegisterConsultingTools(reg *Registry, svc *engagement.Service, ownerID string) error {
	b := &Binding{svc: svc, ownerID: ownerID}
	for _, tool := range b.Tools() {
		if err := reg.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Tools returns the consulting tool definitions.
func (b *Binding) Tools() []*Tool {
	return []*Tool{
		b.getOpportunityContext(),
		b.searchArtifacts(),
		b.addArtifact(),
		b.changePhase(),
		b.addInsight(),
		b.createTask(),
		b.listTasks(),
		b.updateTaskStatus(),
	}
}

// errNoActive is what every tool reports when the owner has no selected
// opportunity; the assistant relays it to the model as a tool error.
var errNoActive = fmt.Errorf("no active opportunity")

// active resolves the owner's active opportunity or fails with errNoActive.
func (b *Binding) active(ctx context.Context) (*engagement.ActiveContext, error) {
	ac, err := b.svc.GetActiveContext(ctx, b.ownerID)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, errNoActive
	}
	return ac, nil
}

func (b *Binding) getOpportunityContext() *Tool {
	return &Tool{
		Name:        "get_opportunity_context",
		Description: "Get the current opportunity context: phase, progress, recent artifacts, and key insights.",
		Schema:      Schema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, _ map[string]any) (string, error) {
			ac, err := b.active(ctx)
			if err != nil {
				return "", err
			}
			return ac.Projection.Render(), nil
		},
	}
}

func (b *Binding) searchArtifacts() *Tool {
	return &Tool{
		Name:        "search_artifacts",
		Description: "Search captured artifacts by keyword, optionally filtered by type or tags, ranked by relevance.",
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query":         {Type: "string", Description: "Keyword to match in title, tags, or content"},
				"artifact_type": {Type: "string", Description: "Restrict to one artifact type"},
				"tags":          {Type: "string", Description: "Comma-separated tags; matches any"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			ac, err := b.active(ctx)
			if err != nil {
				return "", err
			}
			opts := projector.SearchOptions{
				Type: domain.ArtifactType(argString(args, "artifact_type")),
				Tags: splitCSV(argString(args, "tags")),
			}
			matches, err := b.svc.SearchArtifacts(ctx, b.ownerID, ac.Opportunity.ID, argString(args, "query"), opts)
			if err != nil {
				return "", err
			}

			type hit struct {
				ID      string   `json:"id"`
				Type    string   `json:"type"`
				Title   string   `json:"title"`
				Phase   string   `json:"phase"`
				Tags    []string `json:"tags,omitempty"`
				Snippet string   `json:"snippet"`
			}
			out := struct {
				Query   string `json:"query"`
				Count   int    `json:"count"`
				Results []hit  `json:"results"`
			}{Query: argString(args, "query"), Count: len(matches), Results: []hit{}}
			for _, m := range matches {
				out.Results = append(out.Results, hit{
					ID:      m.Artifact.ID,
					Type:    string(m.Artifact.Type),
					Title:   m.Artifact.Title,
					Phase:   string(m.Artifact.Phase),
					Tags:    m.Artifact.Tags,
					Snippet: m.Snippet,
				})
			}
			return marshal(out)
		},
	}
}

func (b *Binding) addArtifact() *Tool {
	return &Tool{
		Name:        "add_artifact",
		Description: "Capture a typed artifact (meeting note, pain point, requirement, risk, ...) against the current opportunity.",
		Schema: Schema{
			Required: []string{"artifact_type", "title", "content"},
			Properties: map[string]Property{
				"artifact_type": {Type: "string", Description: "One of: meeting_note, pain_point, process_map, requirement, risk, deliverable, stakeholder_note, other"},
				"title":         {Type: "string", Description: "Short artifact title"},
				"content":       {Type: "string", Description: "Artifact body"},
				"phase":         {Type: "string", Description: "Phase to file under; defaults to the current phase"},
				"tags":          {Type: "string", Description: "Comma-separated tags"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			ac, err := b.active(ctx)
			if err != nil {
				return "", err
			}
			artifact, err := b.svc.AddArtifact(ctx, b.ownerID, ac.Opportunity.ID, engagement.AddArtifactInput{
				Type:      argString(args, "artifact_type"),
				Title:     argString(args, "title"),
				Content:   argString(args, "content"),
				Phase:     argString(args, "phase"),
				Tags:      splitCSV(argString(args, "tags")),
				CreatedBy: "assistant",
			})
			if err != nil {
				return "", err
			}
			return marshal(map[string]string{
				"result":      fmt.Sprintf("artifact %q captured in %s", artifact.Title, artifact.Phase),
				"artifact_id": artifact.ID,
			})
		},
	}
}

func (b *Binding) changePhase() *Tool {
	return &Tool{
		Name:        "change_phase",
		Description: "Move the current opportunity to another phase (pre_assessment, discovery, solution_design, implementation).",
		Schema: Schema{
			Required: []string{"phase"},
			Properties: map[string]Property{
				"phase": {Type: "string", Description: "Target phase"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			ac, err := b.active(ctx)
			if err != nil {
				return "", err
			}
			opp, err := b.svc.ChangePhase(ctx, b.ownerID, ac.Opportunity.ID, argString(args, "phase"))
			if err != nil {
				return "", err
			}
			return marshal(map[string]string{
				"result":      fmt.Sprintf("moved to %s phase", opp.CurrentPhase),
				"opportunity": opp.Name,
			})
		},
	}
}

func (b *Binding) addInsight() *Tool {
	return &Tool{
		Name:        "add_insight",
		Description: "Record a key insight on the current opportunity. Duplicates are dropped.",
		Schema: Schema{
			Required: []string{"insight"},
			Properties: map[string]Property{
				"insight": {Type: "string", Description: "The insight to record"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			ac, err := b.active(ctx)
			if err != nil {
				return "", err
			}
			opp, err := b.svc.AddInsight(ctx, b.ownerID, ac.Opportunity.ID, argString(args, "insight"))
			if err != nil {
				return "", err
			}
			return marshal(map[string]any{
				"result":         "insight recorded",
				"total_insights": len(opp.KeyInsights),
			})
		},
	}
}

func (b *Binding) createTask() *Tool {
	return &Tool{
		Name:        "create_task",
		Description: "Create a consulting task for a delivery phase.",
		Schema: Schema{
			Required: []string{"title", "description", "phase"},
			Properties: map[string]Property{
				"title":       {Type: "string", Description: "Task title"},
				"description": {Type: "string", Description: "What needs doing"},
				"phase":       {Type: "string", Description: "Delivery phase the task belongs to"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			task, err := b.svc.CreateTask(ctx, b.ownerID, engagement.CreateTaskInput{
				Title:       argString(args, "title"),
				Description: argString(args, "description"),
				Phase:       argString(args, "phase"),
			})
			if err != nil {
				return "", err
			}
			return marshal(map[string]string{
				"result":  fmt.Sprintf("task %q created", task.Title),
				"task_id": task.ID,
			})
		},
	}
}

func (b *Binding) listTasks() *Tool {
	return &Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally for one phase.",
		Schema: Schema{
			Properties: map[string]Property{
				"phase": {Type: "string", Description: "Restrict to one phase"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			tasks, err := b.svc.ListTasks(ctx, b.ownerID, argString(args, "phase"))
			if err != nil {
				return "", err
			}
			var lines []string
			for _, task := range tasks {
				lines = append(lines, fmt.Sprintf("- %s [%s] (%s, %s)", task.Title, task.ID, task.Phase, task.Status))
			}
			if len(lines) == 0 {
				return marshal(map[string]any{"count": 0, "tasks": "no tasks found"})
			}
			return marshal(map[string]any{"count": len(tasks), "tasks": strings.Join(lines, "\n")})
		},
	}
}

func (b *Binding) updateTaskStatus() *Tool {
	return &Tool{
		Name:        "update_task_status",
		Description: "Update the status of a task (todo, in_progress, completed).",
		Schema: Schema{
			Required: []string{"task_id", "status"},
			Properties: map[string]Property{
				"task_id": {Type: "string", Description: "Task identifier"},
				"status":  {Type: "string", Description: "New status"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			task, err := b.svc.UpdateTaskStatus(ctx, b.ownerID, argString(args, "task_id"), argString(args, "status"))
			if err != nil {
				return "", err
			}
			return marshal(map[string]string{
				"result":  fmt.Sprintf("task status updated to %s", task.Status),
				"task_id": task.ID,
			})
		},
	}
}

// ========== Argument helpers ==========

func argString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
