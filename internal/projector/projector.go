// Package projector reduces an opportunity and its artifacts into the
// bounded digest that is injected into every AI conversation turn. Output is
// deterministic for a given snapshot: phases render in delivery order,
// artifacts in creation order, and every list is capped so the digest cannot
// grow without bound as an engagement accumulates artifacts.
package projector

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"consultai/internal/domain"
)

// Caps keeping the digest bounded regardless of engagement size.
const (
	// MaxRecentPerPhase is how many of the newest artifacts each phase
	// contributes to the digest.
	MaxRecentPerPhase = 5

	// MaxInsights caps the key-insights list.
	MaxInsights = 5

	// MaxPreviewLen truncates artifact content in the digest.
	MaxPreviewLen = 300
)

// Projection is the structured digest of one opportunity snapshot.
type Projection struct {
	OpportunityID  string                   `json:"opportunityId"`
	Name           string                   `json:"name"`
	ClientName     string                   `json:"clientName"`
	Description    string                   `json:"description"`
	Status         domain.OpportunityStatus `json:"status"`
	CurrentPhase   domain.Phase             `json:"currentPhase"`
	Stakeholders   []string                 `json:"stakeholders,omitempty"`
	ContextSummary string                   `json:"contextSummary,omitempty"`
	KeyInsights    []string                 `json:"keyInsights,omitempty"`
	TotalArtifacts int                      `json:"totalArtifacts"`
	Phases         []PhaseSection           `json:"phases"`
}

// PhaseSection summarizes one phase: its progress plus the most recent
// artifacts filed under it.
type PhaseSection struct {
	Phase          domain.Phase          `json:"phase"`
	Status         domain.ProgressStatus `json:"status"`
	ArtifactsCount int                   `json:"artifactsCount"`
	Recent         []ArtifactDigest      `json:"recent,omitempty"`
}

// ArtifactDigest is the bounded view of one artifact.
type ArtifactDigest struct {
	ID        string              `json:"id"`
	Type      domain.ArtifactType `json:"type"`
	Title     string              `json:"title"`
	Preview   string              `json:"preview"`
	Tags      []string            `json:"tags,omitempty"`
	CreatedBy string              `json:"createdBy,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Project builds the digest from one consistent snapshot. Artifacts are
// expected in creation order (the store's ListArtifacts order); the last
// MaxRecentPerPhase per phase make the cut.
func Project(opp *domain.Opportunity, artifacts []*domain.Artifact) *Projection {
	p := &Projection{
		OpportunityID:  opp.ID,
		Name:           opp.Name,
		ClientName:     opp.ClientName,
		Description:    opp.Description,
		Status:         opp.Status,
		CurrentPhase:   opp.CurrentPhase,
		Stakeholders:   append([]string(nil), opp.Stakeholders...),
		ContextSummary: opp.ContextSummary,
		TotalArtifacts: len(artifacts),
	}

	insights := opp.KeyInsights
	if len(insights) > MaxInsights {
		insights = insights[len(insights)-MaxInsights:]
	}
	p.KeyInsights = append([]string(nil), insights...)

	byPhase := make(map[domain.Phase][]*domain.Artifact, len(domain.Phases))
	for _, artifact := range artifacts {
		byPhase[artifact.Phase] = append(byPhase[artifact.Phase], artifact)
	}

	// Delivery order, never map iteration order.
	for _, phase := range domain.Phases {
		section := PhaseSection{Phase: phase, Status: domain.ProgressNotStarted}
		if row, ok := opp.PhaseProgress[phase]; ok {
			section.Status = row.Status
			section.ArtifactsCount = row.ArtifactsCount
		}
		filed := byPhase[phase]
		if len(filed) > MaxRecentPerPhase {
			filed = filed[len(filed)-MaxRecentPerPhase:]
		}
		for _, artifact := range filed {
			section.Recent = append(section.Recent, ArtifactDigest{
				ID:        artifact.ID,
				Type:      artifact.Type,
				Title:     artifact.Title,
				Preview:   Preview(artifact.Content, MaxPreviewLen),
				Tags:      append([]string(nil), artifact.Tags...),
				CreatedBy: artifact.CreatedBy,
				CreatedAt: artifact.CreatedAt,
			})
		}
		p.Phases = append(p.Phases, section)
	}

	return p
}

// Render formats the projection as the text block prepended to a
// conversation turn. Same snapshot in, same text out.
func (p *Projection) Render() string {
	var b strings.Builder

	b.WriteString("[CONTEXT - Current Opportunity]\n")
	fmt.Fprintf(&b, "Opportunity: %s\n", p.Name)
	fmt.Fprintf(&b, "Client: %s\n", p.ClientName)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	fmt.Fprintf(&b, "Current Phase: %s\n", p.CurrentPhase)
	if len(p.Stakeholders) > 0 {
		fmt.Fprintf(&b, "Stakeholders: %s\n", strings.Join(p.Stakeholders, ", "))
	}
	if p.ContextSummary != "" {
		fmt.Fprintf(&b, "Context Summary: %s\n", p.ContextSummary)
	}
	fmt.Fprintf(&b, "Total Artifacts: %d\n", p.TotalArtifacts)

	if len(p.KeyInsights) > 0 {
		b.WriteString("Key Insights:\n")
		for _, insight := range p.KeyInsights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}

	for _, section := range p.Phases {
		if section.ArtifactsCount == 0 && len(section.Recent) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\nPhase %s (%s, %d artifacts):\n",
			section.Phase, section.Status, section.ArtifactsCount)
		for _, artifact := range section.Recent {
			fmt.Fprintf(&b, "- [%s] %s (id=%s)\n", artifact.Type, artifact.Title, artifact.ID)
			if len(artifact.Tags) > 0 {
				fmt.Fprintf(&b, "  Tags: %s\n", strings.Join(artifact.Tags, ", "))
			}
			if artifact.Preview != "" {
				fmt.Fprintf(&b, "  %s\n", artifact.Preview)
			}
		}
	}

	b.WriteString("[END CONTEXT]\n")
	return b.String()
}

// Preview truncates content for digest use, marking the cut. The cut never
// splits a multi-byte rune, so the preview stays valid UTF-8.
func Preview(content string, max int) string {
	content = strings.TrimSpace(content)
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
