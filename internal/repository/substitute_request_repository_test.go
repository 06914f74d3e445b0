package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/substitute-finder/internal/models"
)

var substituteRequestRowColumns = []string{"id", "class_id", "requested_by", "date_needed", "start_time", "end_time", "reason", "special_instructions", "status", "assigned_substitute_id", "created_at", "updated_at"}

const mockTimestamp = "2025-03-01T09:00:00.000000Z"

func TestSubstituteRequestListAppliesFilterAndOrder(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	repo := NewSubstituteRequestRepository(store)

	rows := sqlmock.NewRows(substituteRequestRowColumns).
		AddRow("r1", "c1", "u1", "2025-03-10", "08:30", "15:00", nil, nil, "open", nil, mockTimestamp, mockTimestamp)
	mock.ExpectQuery(regexp.QuoteMeta("FROM substitute_requests WHERE status = ? AND class_id = ? ORDER BY date_needed, start_time, id")).
		WithArgs("open", "c1").
		WillReturnRows(rows)

	status := models.RequestOpen
	classID := "c1"
	requests, err := repo.List(context.Background(), models.SubstituteRequestFilter{Status: &status, ClassID: &classID})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.RequestOpen, requests[0].Status)
	assert.Equal(t, "2025-03-01T09:00:00Z", requests[0].CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstituteRequestListRejectsUnknownStatus(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	repo := NewSubstituteRequestRepository(store)

	rows := sqlmock.NewRows(substituteRequestRowColumns).
		AddRow("r1", "c1", "u1", "2025-03-10", "08:30", "15:00", nil, nil, "pending", nil, mockTimestamp, mockTimestamp)
	mock.ExpectQuery("FROM substitute_requests").WillReturnRows(rows)

	_, err := repo.List(context.Background(), models.SubstituteRequestFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnknownValue))
}

func TestSubstituteRequestTransitionPersistsInTx(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	repo := NewSubstituteRequestRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM substitute_requests WHERE id = ?")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(substituteRequestRowColumns).
			AddRow("r1", "c1", "u1", "2025-03-10", "08:30", "15:00", nil, nil, "open", nil, mockTimestamp, mockTimestamp))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE substitute_requests SET status = ?, assigned_substitute_id = ?, updated_at = ? WHERE id = ?")).
		WithArgs("filled", "sub-1", sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.Transition(context.Background(), "r1", func(current *models.SubstituteRequest, scope TransitionScope) error {
		sub := "sub-1"
		current.Status = models.RequestFilled
		current.AssignedSubstituteID = &sub
		current.UpdatedAt = models.Now()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestFilled, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstituteRequestTransitionAbortsOnCallbackError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	repo := NewSubstituteRequestRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM substitute_requests WHERE id").
		WillReturnRows(sqlmock.NewRows(substituteRequestRowColumns).
			AddRow("r1", "c1", "u1", "2025-03-10", "08:30", "15:00", nil, nil, "cancelled", nil, mockTimestamp, mockTimestamp))
	mock.ExpectRollback()

	rejected := errors.New("rejected")
	_, err := repo.Transition(context.Background(), "r1", func(current *models.SubstituteRequest, scope TransitionScope) error {
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstituteRequestTransitionUnknownID(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	repo := NewSubstituteRequestRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM substitute_requests WHERE id").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "missing", func(*models.SubstituteRequest, TransitionScope) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSubstituteRequestDeleteMissing(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	repo := NewSubstituteRequestRepository(store)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM substitute_responses").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM substitute_requests").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "r1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
