// Package engagement is the orchestration layer and the only entry point
// external callers use. It composes the domain model, the phase state
// machine, the store abstraction, and the context projector, and owns the
// transactional boundaries: every mutating operation either becomes fully
// visible or not at all.
package engagement

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"consultai/internal/domain"
	"consultai/internal/projector"
	"consultai/internal/store"
)

// Service exposes the engagement operations. Construct with NewService; the
// zero value is not usable.
type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the service to a backend. A nil logger is replaced with a
// no-op logger.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateOpportunityInput carries the fields for a new engagement.
type CreateOpportunityInput struct {
	Name         string
	ClientName   string
	Description  string
	Stakeholders []string
}

// AddArtifactInput carries the fields for a new artifact. Phase is optional;
// empty means the opportunity's current phase.
type AddArtifactInput struct {
	Type      string
	Title     string
	Content   string
	Phase     string
	Tags      []string
	CreatedBy string
}

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Phase       string
}

// ActiveContext bundles everything the AI collaborator needs for one
// conversation turn: the opportunity, its artifacts, and the bounded
// projection, all from one snapshot.
type ActiveContext struct {
	Opportunity *domain.Opportunity
	Artifacts   []*domain.Artifact
	Projection  *projector.Projection
}

// ========== Opportunities ==========

// CreateOpportunity validates input, builds a fully initialized opportunity
// (one progress row per phase, first phase in_progress), and persists it.
func (s *Service) CreateOpportunity(ctx context.Context, ownerID string, in CreateOpportunityInput) (*domain.Opportunity, error) {
	opp, err := domain.NewOpportunity(ownerID, in.Name, in.ClientName, in.Description, in.Stakeholders, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateOpportunity(ctx, opp); err != nil {
		return nil, err
	}
	s.logger.Info("opportunity created",
		zap.String("id", opp.ID),
		zap.String("client", opp.ClientName))
	return opp, nil
}

// GetOpportunity fetches one owned opportunity with its progress rows.
func (s *Service) GetOpportunity(ctx context.Context, ownerID, id string) (*domain.Opportunity, error) {
	return s.store.GetOpportunity(ctx, ownerID, id)
}

// ListOpportunities returns the owner's opportunities, newest first.
func (s *Service) ListOpportunities(ctx context.Context, ownerID string) ([]*domain.Opportunity, error) {
	return s.store.ListOpportunities(ctx, ownerID)
}

// SetStatus updates the engagement status (active, completed, archived).
func (s *Service) SetStatus(ctx context.Context, ownerID, id string, status domain.OpportunityStatus) (*domain.Opportunity, error) {
	switch status {
	case domain.StatusActive, domain.StatusCompleted, domain.StatusArchived:
	default:
		return nil, &domain.ValidationError{Field: "status", Reason: "must be active, completed, or archived"}
	}

	opp, err := s.store.GetOpportunity(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	opp.Status = status
	if err := s.store.UpdateOpportunity(ctx, opp); err != nil {
		return nil, err
	}
	return s.store.GetOpportunity(ctx, ownerID, id)
}

// DeleteOpportunity removes the opportunity, cascading to its artifacts and
// progress rows and clearing the active pointer if it referenced it.
func (s *Service) DeleteOpportunity(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteOpportunity(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("opportunity deleted", zap.String("id", id))
	return nil
}

// ========== Artifacts ==========

// AddArtifact validates and files an artifact under a phase. The store
// increments the opportunity's and the phase's artifact counts in the same
// atomic step as the insert.
func (s *Service) AddArtifact(ctx context.Context, ownerID, opportunityID string, in AddArtifactInput) (*domain.Artifact, error) {
	opp, err := s.store.GetOpportunity(ctx, ownerID, opportunityID)
	if err != nil {
		return nil, err
	}

	phase := opp.CurrentPhase
	if in.Phase != "" {
		phase, err = domain.ParsePhase(in.Phase)
		if err != nil {
			return nil, err
		}
	}

	artifact, err := domain.NewArtifact(opp.ID, domain.ArtifactType(in.Type), in.Title, in.Content, phase, in.Tags, in.CreatedBy, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateArtifact(ctx, ownerID, artifact); err != nil {
		return nil, err
	}

	s.logger.Debug("artifact added",
		zap.String("id", artifact.ID),
		zap.String("opportunity", opp.ID),
		zap.String("phase", string(phase)),
		zap.String("type", string(artifact.Type)))
	return artifact, nil
}

// GetArtifact fetches one artifact, scoped to the owner.
func (s *Service) GetArtifact(ctx context.Context, ownerID, id string) (*domain.Artifact, error) {
	return s.store.GetArtifact(ctx, ownerID, id)
}

// SearchArtifacts ranks an opportunity's artifacts against a query.
func (s *Service) SearchArtifacts(ctx context.Context, ownerID, opportunityID, query string, opts projector.SearchOptions) ([]projector.Match, error) {
	artifacts, err := s.store.ListArtifacts(ctx, ownerID, opportunityID)
	if err != nil {
		return nil, err
	}
	return projector.SearchArtifacts(artifacts, query, opts), nil
}

// ========== Phase transitions ==========

// ChangePhase moves the opportunity to the target phase, applying the state
// machine's bookkeeping. An invalid target fails before anything is read or
// written.
func (s *Service) ChangePhase(ctx context.Context, ownerID, opportunityID, target string) (*domain.Opportunity, error) {
	phase, err := domain.ParsePhase(target)
	if err != nil {
		return nil, err
	}

	opp, err := s.store.GetOpportunity(ctx, ownerID, opportunityID)
	if err != nil {
		return nil, err
	}
	from := opp.CurrentPhase
	if err := domain.TransitionPhase(opp, phase, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateOpportunity(ctx, opp); err != nil {
		return nil, err
	}

	s.logger.Info("phase changed",
		zap.String("opportunity", opp.ID),
		zap.String("from", string(from)),
		zap.String("to", string(phase)))
	return s.store.GetOpportunity(ctx, ownerID, opportunityID)
}

// ========== Active opportunity ==========

// ActivateOpportunity points the owner at an opportunity, replacing any
// prior pointer.
func (s *Service) ActivateOpportunity(ctx context.Context, ownerID, opportunityID string) error {
	return s.store.SetActiveOpportunity(ctx, ownerID, opportunityID)
}

// DeactivateOpportunity clears the pointer. Idempotent; clearing an empty
// pointer is not an error.
func (s *Service) DeactivateOpportunity(ctx context.Context, ownerID string) error {
	return s.store.ClearActiveOpportunity(ctx, ownerID)
}

// GetActiveContext returns the active opportunity together with its
// artifacts and the projected digest. No selection returns (nil, nil); the
// empty case is well-defined, not an error.
func (s *Service) GetActiveContext(ctx context.Context, ownerID string) (*ActiveContext, error) {
	id, err := s.store.GetActiveOpportunityID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	opp, err := s.store.GetOpportunity(ctx, ownerID, id)
	if errors.Is(err, domain.ErrNotFound) {
		// Stale pointer; the opportunity was deleted out from under it.
		_ = s.store.ClearActiveOpportunity(ctx, ownerID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	artifacts, err := s.store.ListArtifacts(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	return &ActiveContext{
		Opportunity: opp,
		Artifacts:   artifacts,
		Projection:  projector.Project(opp, artifacts),
	}, nil
}

// ========== Insights and summary ==========

// AddInsight appends a key insight, dropping duplicates.
func (s *Service) AddInsight(ctx context.Context, ownerID, opportunityID, insight string) (*domain.Opportunity, error) {
	if insight == "" {
		return nil, &domain.ValidationError{Field: "insight", Reason: "must not be empty"}
	}
	opp, err := s.store.GetOpportunity(ctx, ownerID, opportunityID)
	if err != nil {
		return nil, err
	}
	opp.AddInsight(insight)
	if err := s.store.UpdateOpportunity(ctx, opp); err != nil {
		return nil, err
	}
	return s.store.GetOpportunity(ctx, ownerID, opportunityID)
}

// SetContextSummary replaces the accumulated conversation summary.
func (s *Service) SetContextSummary(ctx context.Context, ownerID, opportunityID, summary string) error {
	opp, err := s.store.GetOpportunity(ctx, ownerID, opportunityID)
	if err != nil {
		return err
	}
	opp.ContextSummary = summary
	return s.store.UpdateOpportunity(ctx, opp)
}

// ========== Tasks ==========

// CreateTask validates and persists a task in the todo state.
func (s *Service) CreateTask(ctx context.Context, ownerID string, in CreateTaskInput) (*domain.Task, error) {
	phase, err := domain.ParsePhase(in.Phase)
	if err != nil {
		return nil, err
	}
	task, err := domain.NewTask(ownerID, in.Title, in.Description, phase, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Debug("task created", zap.String("id", task.ID), zap.String("phase", in.Phase))
	return task, nil
}

// ListTasks returns tasks in insertion order; an empty phase means all.
func (s *Service) ListTasks(ctx context.Context, ownerID, phase string) ([]*domain.Task, error) {
	var p domain.Phase
	if phase != "" {
		var err error
		p, err = domain.ParsePhase(phase)
		if err != nil {
			return nil, err
		}
	}
	return s.store.ListTasks(ctx, ownerID, p)
}

// UpdateTaskStatus moves a task between todo, in_progress, and completed.
func (s *Service) UpdateTaskStatus(ctx context.Context, ownerID, taskID, status string) (*domain.Task, error) {
	st, err := domain.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateTaskStatus(ctx, ownerID, taskID, st)
}
