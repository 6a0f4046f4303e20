package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentRepositoryEnrollIsIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("INSERT INTO enrollments (user_id, course_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, course_id) DO NOTHING")
	mock.ExpectExec(query).
		WithArgs("u1", "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("u1", "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Enroll(context.Background(), "u1", "c1"))
	require.NoError(t, repo.Enroll(context.Background(), "u1", "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryIsEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1")
	mock.ExpectQuery(query).
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(query).
		WithArgs("u1", "c2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	enrolled, err := repo.IsEnrolled(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrolled, err = repo.IsEnrolled(context.Background(), "u1", "c2")
	require.NoError(t, err)
	assert.False(t, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "student_id", "enrolled_at"}).
		AddRow("u1", "Sam", "Student", "student@neurons-lms.test", "S1000001", time.Now())
	mock.ExpectQuery("ORDER BY u.last_name ASC, u.first_name ASC").
		WithArgs("c1").
		WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Sam", students[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
