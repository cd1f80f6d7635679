package projector

import (
	"sort"
	"strings"

	"consultai/internal/domain"
)

// MaxSearchResults caps how many matches a search returns.
const MaxSearchResults = 10

// Relevance weights. A hit in the title outranks a tag hit outranks a
// content hit; an artifact can collect all three.
const (
	titleWeight   = 3
	tagWeight     = 2
	contentWeight = 1
)

// Match pairs a matching artifact with its relevance score and a content
// snippet.
type Match struct {
	Artifact *domain.Artifact `json:"artifact"`
	Score    int              `json:"score"`
	Snippet  string           `json:"snippet"`
}

// SearchOptions narrows a search beyond the query string.
type SearchOptions struct {
	// Type filters to one artifact type when non-empty.
	Type domain.ArtifactType

	// Tags keeps only artifacts carrying at least one of these tags.
	Tags []string
}

// SearchArtifacts ranks artifacts by case-insensitive substring relevance:
// title match, then tag match, then content match, scores summed. Ties break
// by most recent first, then id, so a given snapshot always ranks the same
// way.
func SearchArtifacts(artifacts []*domain.Artifact, query string, opts SearchOptions) []Match {
	query = strings.ToLower(strings.TrimSpace(query))

	var matches []Match
	for _, artifact := range artifacts {
		if opts.Type != "" && artifact.Type != opts.Type {
			continue
		}
		if len(opts.Tags) > 0 && !hasAnyTag(artifact.Tags, opts.Tags) {
			continue
		}

		score := scoreArtifact(artifact, query)
		if score == 0 {
			continue
		}
		matches = append(matches, Match{
			Artifact: artifact,
			Score:    score,
			Snippet:  Preview(artifact.Content, 150),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		a, b := matches[i].Artifact, matches[j].Artifact
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if len(matches) > MaxSearchResults {
		matches = matches[:MaxSearchResults]
	}
	return matches
}

func scoreArtifact(artifact *domain.Artifact, query string) int {
	if query == "" {
		return 0
	}
	score := 0
	if strings.Contains(strings.ToLower(artifact.Title), query) {
		score += titleWeight
	}
	for _, tag := range artifact.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			score += tagWeight
			break
		}
	}
	if strings.Contains(strings.ToLower(artifact.Content), query) {
		score += contentWeight
	}
	return score
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		w = strings.TrimSpace(w)
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
