package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"consultai/internal/domain"
)

// SQLiteStore is the durable backend. Derived counts are maintained with
// atomic "count = count + 1" updates inside the same transaction as the
// write that changes the underlying set, so concurrent writers cannot lose
// an increment. Cross-entity reads (opportunity + progress rows) run inside
// a single transaction and therefore see one consistent snapshot.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema and any pending migrations.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; funnel database/sql through one connection
	// so the driver never reports a busy database under our own load.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("sqlite store ready", zap.String("path", path))
	return s, nil
}

// initialize creates the required tables.
func (s *SQLiteStore) initialize() error {
	opportunitiesTable := `
	CREATE TABLE IF NOT EXISTS opportunities (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		client_name TEXT NOT NULL,
		description TEXT NOT NULL,
		current_phase TEXT NOT NULL,
		status TEXT NOT NULL,
		stakeholders TEXT NOT NULL DEFAULT '[]',
		key_insights TEXT NOT NULL DEFAULT '[]',
		context_summary TEXT NOT NULL DEFAULT '',
		artifacts_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_opportunities_owner ON opportunities(owner_id);
	`

	progressTable := `
	CREATE TABLE IF NOT EXISTS phase_progress (
		opportunity_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		status TEXT NOT NULL,
		start_date DATETIME,
		end_date DATETIME,
		artifacts_count INTEGER NOT NULL DEFAULT 0,
		completion_percentage INTEGER NOT NULL DEFAULT 0,
		UNIQUE(opportunity_id, phase)
	);
	CREATE INDEX IF NOT EXISTS idx_progress_opportunity ON phase_progress(opportunity_id);
	`

	artifactsTable := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		opportunity_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		artifact_type TEXT NOT NULL,
		phase TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_opportunity ON artifacts(opportunity_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_phase ON artifacts(opportunity_id, phase);
	`

	activeTable := `
	CREATE TABLE IF NOT EXISTS active_opportunity (
		owner_id TEXT PRIMARY KEY,
		opportunity_id TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	tasksTable := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		phase TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
	`

	for _, table := range []string{opportunitiesTable, progressTable, artifactsTable, activeTable, tasksTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// translateErr maps driver failures onto the domain taxonomy. Nothing
// sqlite-specific leaves this package.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrUnavailable):
		return err
	case strings.Contains(err.Error(), "constraint"):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return translateErr(err)
	}
	return translateErr(tx.Commit())
}

// ========== Opportunities ==========

func (s *SQLiteStore) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	stakeholders, _ := json.Marshal(opp.Stakeholders)
	insights, _ := json.Marshal(opp.KeyInsights)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO opportunities
			 (id, owner_id, name, client_name, description, current_phase, status,
			  stakeholders, key_insights, context_summary, artifacts_count, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			opp.ID, opp.OwnerID, opp.Name, opp.ClientName, opp.Description,
			string(opp.CurrentPhase), string(opp.Status),
			string(stakeholders), string(insights), opp.ContextSummary,
			opp.ArtifactsCount, opp.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, phase := range domain.Phases {
			row := opp.PhaseProgress[phase]
			if row == nil {
				return fmt.Errorf("missing progress row for phase %s", phase)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO phase_progress
				 (opportunity_id, phase, status, start_date, end_date, artifacts_count, completion_percentage)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				opp.ID, string(phase), string(row.Status),
				nullTime(row.StartDate), nullTime(row.EndDate),
				row.ArtifactsCount, row.CompletionPercentage,
			)
			if err != nil {
				return err
			}
		}

		// First opportunity for an owner becomes the active one.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO active_opportunity (owner_id, opportunity_id)
			 VALUES (?, ?)
			 ON CONFLICT(owner_id) DO NOTHING`,
			opp.OwnerID, opp.ID,
		)
		return err
	})
}

func (s *SQLiteStore) GetOpportunity(ctx context.Context, ownerID, id string) (*domain.Opportunity, error) {
	var opp *domain.Opportunity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		opp, err = scanOpportunity(ctx, tx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return opp, nil
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, ownerID string) ([]*domain.Opportunity, error) {
	var out []*domain.Opportunity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM opportunities WHERE owner_id = ? ORDER BY created_at DESC, id ASC`,
			ownerID,
		)
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, id := range ids {
			opp, err := scanOpportunity(ctx, tx, ownerID, id)
			if err != nil {
				return err
			}
			out = append(out, opp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scanOpportunity reads an opportunity and its progress rows within the
// caller's transaction, so the count and the rows belong to one snapshot.
func scanOpportunity(ctx context.Context, tx *sql.Tx, ownerID, id string) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	var phase, status, stakeholders, insights string
	err := tx.QueryRowContext(ctx,
		`SELECT id, owner_id, name, client_name, description, current_phase, status,
		        stakeholders, key_insights, context_summary, artifacts_count, created_at
		 FROM opportunities WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&opp.ID, &opp.OwnerID, &opp.Name, &opp.ClientName, &opp.Description,
		&phase, &status, &stakeholders, &insights, &opp.ContextSummary,
		&opp.ArtifactsCount, &opp.CreatedAt)
	if err != nil {
		return nil, err
	}
	opp.CurrentPhase = domain.Phase(phase)
	opp.Status = domain.OpportunityStatus(status)
	if err := json.Unmarshal([]byte(stakeholders), &opp.Stakeholders); err != nil {
		opp.Stakeholders = nil
	}
	if err := json.Unmarshal([]byte(insights), &opp.KeyInsights); err != nil {
		opp.KeyInsights = nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT phase, status, start_date, end_date, artifacts_count, completion_percentage
		 FROM phase_progress WHERE opportunity_id = ?`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opp.PhaseProgress = make(map[domain.Phase]*domain.PhaseProgress, len(domain.Phases))
	for rows.Next() {
		var row domain.PhaseProgress
		var rowPhase, rowSt string
		var start, end sql.NullTime
		if err := rows.Scan(&rowPhase, &rowSt, &start, &end, &row.ArtifactsCount, &row.CompletionPercentage); err != nil {
			return nil, err
		}
		row.Phase = domain.Phase(rowPhase)
		row.Status = domain.ProgressStatus(rowSt)
		if start.Valid {
			t := start.Time
			row.StartDate = &t
		}
		if end.Valid {
			t := end.Time
			row.EndDate = &t
		}
		opp.PhaseProgress[row.Phase] = &row
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &opp, nil
}

func (s *SQLiteStore) UpdateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	stakeholders, _ := json.Marshal(opp.Stakeholders)
	insights, _ := json.Marshal(opp.KeyInsights)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE opportunities
			 SET name = ?, client_name = ?, description = ?, current_phase = ?,
			     status = ?, stakeholders = ?, key_insights = ?, context_summary = ?
			 WHERE id = ? AND owner_id = ?`,
			opp.Name, opp.ClientName, opp.Description, string(opp.CurrentPhase),
			string(opp.Status), string(stakeholders), string(insights), opp.ContextSummary,
			opp.ID, opp.OwnerID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}

		// Artifact counts are deliberately left out: they are owned by the
		// increments in CreateArtifact.
		for _, phase := range domain.Phases {
			row := opp.PhaseProgress[phase]
			if row == nil {
				continue
			}
			_, err := tx.ExecContext(ctx,
				`UPDATE phase_progress
				 SET status = ?, start_date = ?, end_date = ?, completion_percentage = ?
				 WHERE opportunity_id = ? AND phase = ?`,
				string(row.Status), nullTime(row.StartDate), nullTime(row.EndDate),
				row.CompletionPercentage, opp.ID, string(phase),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) DeleteOpportunity(ctx context.Context, ownerID, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwned(ctx, tx, ownerID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE opportunity_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM phase_progress WHERE opportunity_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM active_opportunity WHERE owner_id = ? AND opportunity_id = ?`,
			ownerID, id,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM opportunities WHERE id = ?`, id)
		return err
	})
}

// requireOwned verifies existence and ownership inside the transaction.
func requireOwned(ctx context.Context, tx *sql.Tx, ownerID, opportunityID string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM opportunities WHERE id = ? AND owner_id = ?`,
		opportunityID, ownerID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// ========== Artifacts ==========

func (s *SQLiteStore) CreateArtifact(ctx context.Context, ownerID string, artifact *domain.Artifact) error {
	tags, _ := json.Marshal(artifact.Tags)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwned(ctx, tx, ownerID, artifact.OpportunityID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts
			 (id, opportunity_id, title, content, artifact_type, phase, tags, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			artifact.ID, artifact.OpportunityID, artifact.Title, artifact.Content,
			string(artifact.Type), string(artifact.Phase), string(tags),
			artifact.CreatedBy, artifact.CreatedAt,
		)
		if err != nil {
			return err
		}

		// Atomic increments in the insert's transaction; never read-then-write.
		if _, err := tx.ExecContext(ctx,
			`UPDATE opportunities SET artifacts_count = artifacts_count + 1 WHERE id = ?`,
			artifact.OpportunityID,
		); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE phase_progress SET artifacts_count = artifacts_count + 1
			 WHERE opportunity_id = ? AND phase = ?`,
			artifact.OpportunityID, string(artifact.Phase),
		)
		return err
	})
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, ownerID, id string) (*domain.Artifact, error) {
	var artifact *domain.Artifact
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT a.id, a.opportunity_id, a.title, a.content, a.artifact_type,
			        a.phase, a.tags, a.created_by, a.created_at
			 FROM artifacts a
			 JOIN opportunities o ON o.id = a.opportunity_id
			 WHERE a.id = ? AND o.owner_id = ?`,
			id, ownerID,
		)
		var err error
		artifact, err = scanArtifact(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, ownerID, opportunityID string) ([]*domain.Artifact, error) {
	var out []*domain.Artifact
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwned(ctx, tx, ownerID, opportunityID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT id, opportunity_id, title, content, artifact_type, phase, tags, created_by, created_at
			 FROM artifacts WHERE opportunity_id = ?
			 ORDER BY created_at ASC, id ASC`,
			opportunityID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			artifact, err := scanArtifact(rows)
			if err != nil {
				return err
			}
			out = append(out, artifact)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*domain.Artifact, error) {
	var (
		a          domain.Artifact
		typ, phase string
		tags       string
	)
	err := row.Scan(&a.ID, &a.OpportunityID, &a.Title, &a.Content, &typ, &phase, &tags, &a.CreatedBy, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = domain.ArtifactType(typ)
	a.Phase = domain.Phase(phase)
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		a.Tags = nil
	}
	return &a, nil
}

// ========== Active pointer ==========

func (s *SQLiteStore) SetActiveOpportunity(ctx context.Context, ownerID, opportunityID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOwned(ctx, tx, ownerID, opportunityID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO active_opportunity (owner_id, opportunity_id, updated_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT(owner_id) DO UPDATE SET
			   opportunity_id = excluded.opportunity_id,
			   updated_at = excluded.updated_at`,
			ownerID, opportunityID, time.Now().UTC(),
		)
		return err
	})
}

func (s *SQLiteStore) GetActiveOpportunityID(ctx context.Context, ownerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT opportunity_id FROM active_opportunity WHERE owner_id = ?`,
		ownerID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", translateErr(err)
	}
	return id, nil
}

func (s *SQLiteStore) ClearActiveOpportunity(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM active_opportunity WHERE owner_id = ?`, ownerID)
	return translateErr(err)
}

// ========== Tasks ==========

func (s *SQLiteStore) CreateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, owner_id, title, description, phase, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, task.Title, task.Description,
		string(task.Phase), string(task.Status), task.CreatedAt,
	)
	return translateErr(err)
}

func (s *SQLiteStore) GetTask(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, phase, status, created_at
		 FROM tasks WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	))
	if err != nil {
		return nil, translateErr(err)
	}
	return task, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, ownerID string, phase domain.Phase) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, owner_id, title, description, phase, status, created_at
	          FROM tasks WHERE owner_id = ?`
	args := []any{ownerID}
	if phase != "" {
		query += ` AND phase = ?`
		args = append(args, string(phase))
	}
	query += ` ORDER BY rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, translateErr(err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr(err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, ownerID, id string, status domain.TaskStatus) (*domain.Task, error) {
	var task *domain.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ? WHERE id = ? AND owner_id = ?`,
			string(status), id, ownerID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		task, err = scanTask(tx.QueryRowContext(ctx,
			`SELECT id, owner_id, title, description, phase, status, created_at
			 FROM tasks WHERE id = ?`, id,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t             domain.Task
		phase, status string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &phase, &status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Phase = domain.Phase(phase)
	t.Status = domain.TaskStatus(status)
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Store = (*SQLiteStore)(nil)
