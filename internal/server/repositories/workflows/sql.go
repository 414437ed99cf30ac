package workflows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/dbx"
	"github.com/dmitrijs2005/bmd/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

const workflowColumns = `w.workflow_id, w.user_id, w.name, w.description, w.species_name, w.ecosystem_type,
	w.geometry_type, w.geometry_wkt, w.parameters, w.status, w.results, w.error_message,
	w.created_at, w.updated_at, w.completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(s scanner, w *models.Workflow, extra ...any) error {
	var (
		results, errMsg sql.NullString
		completedAt     sql.NullTime
	)

	dest := []any{
		&w.ID, &w.UserID, &w.Name, &w.Description, &w.SpeciesName, &w.EcosystemType,
		&w.GeometryType, &w.GeometryWKT, &w.Parameters, &w.Status, &results, &errMsg,
		&w.CreatedAt, &w.UpdatedAt, &completedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	if results.Valid {
		w.Results = &results.String
	}
	if errMsg.Valid {
		w.ErrorMessage = &errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		w.CompletedAt = &t
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, w *models.Workflow) error {
	query :=
		`INSERT INTO workflows (workflow_id, user_id, name, description, species_name, ecosystem_type,
		     geometry_type, geometry_wkt, parameters, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.UserID, w.Name, w.Description, w.SpeciesName, w.EcosystemType,
		w.GeometryType, w.GeometryWKT, w.Parameters, w.Status, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows w WHERE w.workflow_id = $1`

	w := &models.Workflow{}
	if err := scanWorkflow(r.db.QueryRowContext(ctx, query, id), w); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return w, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows w WHERE w.user_id = $1 ORDER BY w.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Workflow, 0)
	for rows.Next() {
		var w models.Workflow
		if err := scanWorkflow(rows, &w); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) ListByStatus(ctx context.Context, status string) ([]models.WorkflowWithOwner, error) {
	query := `SELECT ` + workflowColumns + `, u.email, u.name
		FROM workflows w JOIN users u ON u.user_id = w.user_id
		WHERE w.status = $1
		ORDER BY w.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.WorkflowWithOwner, 0)
	for rows.Next() {
		var w models.WorkflowWithOwner
		if err := scanWorkflow(rows, &w.Workflow, &w.UserEmail, &w.UserName); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// UpdateStatus sets status and updated_at, plus whichever of results,
// error_message and completed_at the change carries.
func (r *SQLRepository) UpdateStatus(ctx context.Context, id string, change models.StatusChange) error {
	sets := []string{"status = $1", "updated_at = $2"}
	args := []any{change.Status, change.UpdatedAt}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if change.Results != nil {
		add("results", *change.Results)
	}
	if change.ErrorMessage != nil {
		add("error_message", *change.ErrorMessage)
	}
	if change.CompletedAt != nil {
		add("completed_at", *change.CompletedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE workflows SET %s WHERE workflow_id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE workflow_id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteByUser removes every workflow owned by userID and reports how many went.
func (r *SQLRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
