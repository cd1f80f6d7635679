// Package store provides the persistence boundary for the engagement domain.
// One capability contract, two interchangeable backends: an in-process memory
// store and a SQLite store. The engagement service is written against the
// Store interface and never sees a backend-specific error type; each backend
// translates its native failures into the domain taxonomy (ErrNotFound,
// ErrConflict, ErrUnavailable) before returning.
package store

import (
	"context"

	"consultai/internal/domain"
)

// Store is the single persistence contract for opportunities, artifacts,
// phase progress, the per-owner active pointer, and tasks.
//
// Every read and write is scoped to an owner id; an entity that exists but
// belongs to someone else is indistinguishable from one that does not exist
// (ErrNotFound in both cases).
//
// Consistency contract:
//   - CreateOpportunity persists the opportunity and all of its phase
//     progress rows atomically, and points the owner's active pointer at it
//     if no pointer is set.
//   - CreateArtifact persists the artifact and increments both the
//     opportunity's and the phase row's artifact count in the same atomic
//     step. A lost-update race on the counts is a backend bug.
//   - GetOpportunity returns the opportunity together with its progress rows
//     as one consistent snapshot; no writer can interleave between the two
//     halves of the read.
//   - DeleteOpportunity cascades to artifacts and progress rows and clears
//     the active pointer if it referenced the deleted opportunity.
type Store interface {
	CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error
	GetOpportunity(ctx context.Context, ownerID, id string) (*domain.Opportunity, error)
	ListOpportunities(ctx context.Context, ownerID string) ([]*domain.Opportunity, error)

	// UpdateOpportunity persists mutable opportunity state (current phase,
	// status, stakeholders, insights, context summary) plus all progress
	// rows in one atomic step. Artifact counts are not written here; they
	// are owned by CreateArtifact's increments.
	UpdateOpportunity(ctx context.Context, opp *domain.Opportunity) error
	DeleteOpportunity(ctx context.Context, ownerID, id string) error

	CreateArtifact(ctx context.Context, ownerID string, artifact *domain.Artifact) error
	GetArtifact(ctx context.Context, ownerID, id string) (*domain.Artifact, error)

	// ListArtifacts returns the opportunity's artifacts ordered by creation
	// time, oldest first, ties broken by id.
	ListArtifacts(ctx context.Context, ownerID, opportunityID string) ([]*domain.Artifact, error)

	// SetActiveOpportunity points the owner at an opportunity with upsert
	// semantics, verifying existence and ownership first.
	SetActiveOpportunity(ctx context.Context, ownerID, opportunityID string) error

	// GetActiveOpportunityID returns "" with a nil error when no opportunity
	// is selected; the empty case is not an error.
	GetActiveOpportunityID(ctx context.Context, ownerID string) (string, error)

	// ClearActiveOpportunity is idempotent; clearing an empty pointer is a
	// no-op.
	ClearActiveOpportunity(ctx context.Context, ownerID string) error

	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, ownerID, id string) (*domain.Task, error)

	// ListTasks returns tasks in insertion order. An empty phase means all
	// phases.
	ListTasks(ctx context.Context, ownerID string, phase domain.Phase) ([]*domain.Task, error)
	UpdateTaskStatus(ctx context.Context, ownerID, id string, status domain.TaskStatus) (*domain.Task, error)

	Close() error
}
