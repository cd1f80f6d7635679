package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID produces a collision-resistant identifier with a readable prefix,
// e.g. "opp_1f8a9c3d". Safe as a storage key in either backend; no
// auto-increment semantics involved.
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String()[:8])
}

// Entity id prefixes.
const (
	OpportunityIDPrefix = "opp"
	ArtifactIDPrefix    = "artifact"
	TaskIDPrefix        = "task"
)

func NewOpportunityID() string { return NewID(OpportunityIDPrefix) }
func NewArtifactID() string    { return NewID(ArtifactIDPrefix) }
func NewTaskID() string        { return NewID(TaskIDPrefix) }
