package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestTimetableSlotRepositoryUpsertBatch(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WithArgs(sqlmock.AnyArg(), "tt-1", "mon", "h1", "math", 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WithArgs(sqlmock.AnyArg(), "tt-1", "tue", "h1", "bio", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slots := []models.TimetableSlot{
		{TimetableID: "tt-1", Day: "mon", Hour: "h1", Subject: "math", Position: 0},
		{TimetableID: "tt-1", Day: "tue", Hour: "h1", Subject: "bio", Position: 1},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), nil, slots))
	assert.NotEmpty(t, slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSlotRepositoryUpsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSlotRepository(db)

	require.NoError(t, repo.UpsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSlotRepositoryListByTimetable(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day", "hour", "subject", "position", "created_at", "updated_at"}).
		AddRow("slot-1", "tt-1", "mon", "h1", "math", 0, time.Now(), time.Now()).
		AddRow("slot-2", "tt-1", "tue", "h1", "bio", 1, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timetable_id, day, hour, subject, position, created_at, updated_at FROM timetable_slots WHERE timetable_id = $1 ORDER BY position ASC")).
		WithArgs("tt-1").
		WillReturnRows(rows)

	slots, err := repo.ListByTimetable(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "bio", slots[1].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}
