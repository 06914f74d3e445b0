package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder/internal/models"
)

const substituteRequestColumns = `id, class_id, requested_by, date_needed, start_time, end_time, reason, special_instructions, status, assigned_substitute_id, created_at, updated_at`

// TransitionScope exposes reads and appends bound to the transaction a
// transition runs in. Using the regular repositories from inside a
// TransitionFunc would wait on the guard the transition already holds.
type TransitionScope interface {
	UserReader
	AddResponse(ctx context.Context, response *models.SubstituteResponse) error
}

// TransitionFunc mutates current in place. Returning an error aborts the
// transition and nothing is written.
type TransitionFunc func(current *models.SubstituteRequest, scope TransitionScope) error

// SubstituteRequestRepository provides database access for substitute requests.
type SubstituteRequestRepository struct {
	store *Store
}

// NewSubstituteRequestRepository creates a new instance of SubstituteRequestRepository.
func NewSubstituteRequestRepository(store *Store) *SubstituteRequestRepository {
	return &SubstituteRequestRepository{store: store}
}

// FindByID returns a request by identifier.
func (r *SubstituteRequestRepository) FindByID(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	var req *models.SubstituteRequest
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		var err error
		req, err = findSubstituteRequest(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// List returns requests matching filter ordered by date, start time and id.
func (r *SubstituteRequestRepository) List(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequest, error) {
	where, args := substituteRequestConditions(filter, "")
	query := `SELECT ` + substituteRequestColumns + ` FROM substitute_requests` + where + ` ORDER BY date_needed, start_time, id`

	var requests []models.SubstituteRequest
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &requests, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list substitute requests: %w", err)
	}
	return requests, nil
}

// ListForExport returns requests joined with class, organization and user names.
func (r *SubstituteRequestRepository) ListForExport(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequestExport, error) {
	where, args := substituteRequestConditions(filter, "sr.")
	query := `SELECT sr.id, sr.date_needed, sr.start_time, sr.end_time, sr.status, sr.reason,
       c.name AS class_name,
       o.name AS organization_name,
       u.first_name || ' ' || u.last_name AS requester_name,
       CASE WHEN s.id IS NULL THEN NULL ELSE s.first_name || ' ' || s.last_name END AS substitute_name
FROM substitute_requests sr
JOIN classes c ON c.id = sr.class_id
JOIN organizations o ON o.id = c.organization_id
JOIN users u ON u.id = sr.requested_by
LEFT JOIN users s ON s.id = sr.assigned_substitute_id` + where + `
ORDER BY sr.date_needed, sr.start_time, sr.id`

	var rows []models.SubstituteRequestExport
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &rows, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list substitute requests for export: %w", err)
	}
	return rows, nil
}

// Create inserts a new request.
func (r *SubstituteRequestRepository) Create(ctx context.Context, req *models.SubstituteRequest) error {
	const query = `INSERT INTO substitute_requests (id, class_id, requested_by, date_needed, start_time, end_time, reason, special_instructions, status, assigned_substitute_id, created_at, updated_at)
VALUES (:id, :class_id, :requested_by, :date_needed, :start_time, :end_time, :reason, :special_instructions, :status, :assigned_substitute_id, :created_at, :updated_at)`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return namedExec(ctx, q, query, req)
	})
	if err != nil {
		return fmt.Errorf("create substitute request: %w", err)
	}
	return nil
}

// UpdateDetails rewrites the descriptive fields of a request that is still in
// status. It returns sql.ErrNoRows when the id is unknown or the status moved on.
func (r *SubstituteRequestRepository) UpdateDetails(ctx context.Context, req *models.SubstituteRequest, status models.RequestStatus) error {
	const query = `UPDATE substitute_requests SET date_needed = ?, start_time = ?, end_time = ?, reason = ?, special_instructions = ?, updated_at = ? WHERE id = ? AND status = ?`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, query,
			req.DateNeeded, req.StartTime, req.EndTime, req.Reason, req.SpecialInstructions, req.UpdatedAt, req.ID, status))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update substitute request: %w", err)
	}
	return nil
}

// Delete removes a request and its responses.
func (r *SubstituteRequestRepository) Delete(ctx context.Context, id string) error {
	err := r.store.tx(ctx, func(tx *sqlx.Tx) error {
		if _, err := execAffecting(ctx, tx, `DELETE FROM substitute_responses WHERE request_id = ?`, id); err != nil {
			return err
		}
		return requireAffected(execAffecting(ctx, tx, `DELETE FROM substitute_requests WHERE id = ?`, id))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("delete substitute request: %w", err)
	}
	return nil
}

// Transition loads the request, lets fn change it and persists status,
// assignment and updated_at in one transaction under the store guard.
func (r *SubstituteRequestRepository) Transition(ctx context.Context, id string, fn TransitionFunc) (*models.SubstituteRequest, error) {
	var updated *models.SubstituteRequest
	err := r.store.tx(ctx, func(tx *sqlx.Tx) error {
		current, err := findSubstituteRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(current, txScope{txUsers: txUsers{q: tx}}); err != nil {
			return err
		}
		const query = `UPDATE substitute_requests SET status = ?, assigned_substitute_id = ?, updated_at = ? WHERE id = ?`
		if err := requireAffected(execAffecting(ctx, tx, query, current.Status, current.AssignedSubstituteID, current.UpdatedAt, current.ID)); err != nil {
			return fmt.Errorf("persist transition: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListResponses returns the responses recorded for a request, oldest first.
func (r *SubstituteRequestRepository) ListResponses(ctx context.Context, requestID string) ([]models.SubstituteResponse, error) {
	const query = `SELECT id, request_id, substitute_id, response, response_time, notes FROM substitute_responses WHERE request_id = ? ORDER BY response_time, id`
	var responses []models.SubstituteResponse
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &responses, query, requestID)
	})
	if err != nil {
		return nil, fmt.Errorf("list substitute responses: %w", err)
	}
	return responses, nil
}

func findSubstituteRequest(ctx context.Context, q sqlx.ExtContext, id string) (*models.SubstituteRequest, error) {
	query := `SELECT ` + substituteRequestColumns + ` FROM substitute_requests WHERE id = ?`
	var req models.SubstituteRequest
	if err := get(ctx, q, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find substitute request by id: %w", err)
	}
	return &req, nil
}

func substituteRequestConditions(filter models.SubstituteRequestFilter, prefix string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		conditions = append(conditions, prefix+cond)
		args = append(args, arg)
	}
	if filter.Status != nil {
		add("status = ?", *filter.Status)
	}
	if filter.ClassID != nil {
		add("class_id = ?", *filter.ClassID)
	}
	if filter.RequestedBy != nil {
		add("requested_by = ?", *filter.RequestedBy)
	}
	if filter.AssignedSubstituteID != nil {
		add("assigned_substitute_id = ?", *filter.AssignedSubstituteID)
	}
	if filter.DateFrom != nil {
		add("date_needed >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("date_needed <= ?", *filter.DateTo)
	}
	if filter.OpenOrAssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("(%sstatus = ? OR %sassigned_substitute_id = ?)", prefix, prefix))
		args = append(args, models.RequestOpen, *filter.OpenOrAssignedTo)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type txScope struct {
	txUsers
}

func (s txScope) AddResponse(ctx context.Context, response *models.SubstituteResponse) error {
	const query = `INSERT INTO substitute_responses (id, request_id, substitute_id, response, response_time, notes)
VALUES (:id, :request_id, :substitute_id, :response, :response_time, :notes)`
	if err := namedExec(ctx, s.q, query, response); err != nil {
		return fmt.Errorf("create substitute response: %w", err)
	}
	return nil
}
