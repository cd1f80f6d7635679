package store

import (
	"context"
	"sort"
	"sync"

	"consultai/internal/domain"
)

// MemoryStore is the ephemeral backend: process-local maps guarded by a
// single RWMutex, so every operation is atomic within the process. State is
// lost on restart. Used when no durable backend is configured, and as the
// reference implementation in tests.
type MemoryStore struct {
	mu sync.RWMutex

	opportunities map[string]*domain.Opportunity
	artifacts     map[string]*domain.Artifact

	// artifactOrder tracks each opportunity's artifact ids for collection
	// and cascade deletion.
	artifactOrder map[string][]string

	active map[string]string

	tasks     map[string]*domain.Task
	taskOrder []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		opportunities: make(map[string]*domain.Opportunity),
		artifacts:     make(map[string]*domain.Artifact),
		artifactOrder: make(map[string][]string),
		active:        make(map[string]string),
		tasks:         make(map[string]*domain.Task),
	}
}

// ========== Opportunities ==========

func (s *MemoryStore) CreateOpportunity(_ context.Context, opp *domain.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.opportunities[opp.ID]; exists {
		return domain.ErrConflict
	}
	s.opportunities[opp.ID] = opp.Clone()

	// First opportunity for an owner becomes the active one.
	if s.active[opp.OwnerID] == "" {
		s.active[opp.OwnerID] = opp.ID
	}
	return nil
}

func (s *MemoryStore) GetOpportunity(_ context.Context, ownerID, id string) (*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getOwnedLocked(ownerID, id)
}

// getOwnedLocked resolves an opportunity under the caller's lock. Ownership
// mismatch reads identically to absence.
func (s *MemoryStore) getOwnedLocked(ownerID, id string) (*domain.Opportunity, error) {
	opp, ok := s.opportunities[id]
	if !ok || opp.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return opp.Clone(), nil
}

func (s *MemoryStore) ListOpportunities(_ context.Context, ownerID string) ([]*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Opportunity
	for _, opp := range s.opportunities {
		if opp.OwnerID == ownerID {
			out = append(out, opp.Clone())
		}
	}
	// Newest first, id as tiebreaker for stable output.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateOpportunity(_ context.Context, opp *domain.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.opportunities[opp.ID]
	if !ok || stored.OwnerID != opp.OwnerID {
		return domain.ErrNotFound
	}

	updated := opp.Clone()
	// Counts are owned by CreateArtifact; carry the stored values through.
	updated.ArtifactsCount = stored.ArtifactsCount
	for p, row := range updated.PhaseProgress {
		if storedRow, ok := stored.PhaseProgress[p]; ok {
			row.ArtifactsCount = storedRow.ArtifactsCount
		}
	}
	s.opportunities[opp.ID] = updated
	return nil
}

func (s *MemoryStore) DeleteOpportunity(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, ok := s.opportunities[id]
	if !ok || opp.OwnerID != ownerID {
		return domain.ErrNotFound
	}

	for _, artifactID := range s.artifactOrder[id] {
		delete(s.artifacts, artifactID)
	}
	delete(s.artifactOrder, id)
	delete(s.opportunities, id)
	if s.active[ownerID] == id {
		delete(s.active, ownerID)
	}
	return nil
}

// ========== Artifacts ==========

func (s *MemoryStore) CreateArtifact(_ context.Context, ownerID string, artifact *domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, ok := s.opportunities[artifact.OpportunityID]
	if !ok || opp.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	if _, exists := s.artifacts[artifact.ID]; exists {
		return domain.ErrConflict
	}

	s.artifacts[artifact.ID] = artifact.Clone()
	s.artifactOrder[opp.ID] = append(s.artifactOrder[opp.ID], artifact.ID)

	// Same lock as the insert, so the counts cannot drift.
	opp.ArtifactsCount++
	if row, ok := opp.PhaseProgress[artifact.Phase]; ok {
		row.ArtifactsCount++
	}
	return nil
}

func (s *MemoryStore) GetArtifact(_ context.Context, ownerID, id string) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, ok := s.artifacts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	opp, ok := s.opportunities[artifact.OpportunityID]
	if !ok || opp.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return artifact.Clone(), nil
}

func (s *MemoryStore) ListArtifacts(_ context.Context, ownerID, opportunityID string) ([]*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opp, ok := s.opportunities[opportunityID]
	if !ok || opp.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}

	ids := s.artifactOrder[opportunityID]
	out := make([]*domain.Artifact, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.artifacts[id].Clone())
	}
	// Oldest first, id as tiebreaker, matching the sqlite listing.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ========== Active pointer ==========

func (s *MemoryStore) SetActiveOpportunity(_ context.Context, ownerID, opportunityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opp, ok := s.opportunities[opportunityID]
	if !ok || opp.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	s.active[ownerID] = opportunityID
	return nil
}

func (s *MemoryStore) GetActiveOpportunityID(_ context.Context, ownerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[ownerID], nil
}

func (s *MemoryStore) ClearActiveOpportunity(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, ownerID)
	return nil
}

// ========== Tasks ==========

func (s *MemoryStore) CreateTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return domain.ErrConflict
	}
	s.tasks[task.ID] = task.Clone()
	s.taskOrder = append(s.taskOrder, task.ID)
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, ownerID, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return task.Clone(), nil
}

func (s *MemoryStore) ListTasks(_ context.Context, ownerID string, phase domain.Phase) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, id := range s.taskOrder {
		task := s.tasks[id]
		if task.OwnerID != ownerID {
			continue
		}
		if phase != "" && task.Phase != phase {
			continue
		}
		out = append(out, task.Clone())
	}
	return out, nil
}

func (s *MemoryStore) UpdateTaskStatus(_ context.Context, ownerID, id string, status domain.TaskStatus) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	task.Status = status
	return task.Clone(), nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
