package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, userID, courseID string) error
	Unenroll(ctx context.Context, userID, courseID string) error
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EnrollmentService manages student/course enrollment.
type EnrollmentService struct {
	enrollments enrollmentRepository
	courses     enrollmentCourseReader
	users       enrollmentUserReader
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(enrollments enrollmentRepository, courses enrollmentCourseReader, users enrollmentUserReader, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, courses: courses, users: users, metrics: metrics, logger: logger}
}

// Enroll adds the caller to the course. Only students carry enrollments;
// for any other role the call succeeds without touching anything.
// Re-enrolling an already enrolled student is equally a no-op, so
// enroll/unenroll round trips always land in a clean state.
func (s *EnrollmentService) Enroll(ctx context.Context, claims *models.JWTClaims, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if claims.Role != models.RoleStudent {
		return nil
	}

	if err := s.enrollments.Enroll(ctx, claims.UserID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollmentChange("enroll")
	}
	s.writeAudit(ctx, claims.UserID, models.AuditActionEnrollmentCreate, claims.UserID, courseID)
	return nil
}

// Unenroll removes the caller from the course. Same no-op semantics as
// Enroll for non-students and for students who were never enrolled.
func (s *EnrollmentService) Unenroll(ctx context.Context, claims *models.JWTClaims, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if claims.Role != models.RoleStudent {
		return nil
	}

	if err := s.enrollments.Unenroll(ctx, claims.UserID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollmentChange("unenroll")
	}
	s.writeAudit(ctx, claims.UserID, models.AuditActionEnrollmentDelete, claims.UserID, courseID)
	return nil
}

// AdminEnroll lets an administrator enroll a specific student. Unlike the
// self-service path, targeting a non-student is an error here.
func (s *EnrollmentService) AdminEnroll(ctx context.Context, actorID, studentID, courseID string) error {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.enrollments.Enroll(ctx, studentID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollmentChange("enroll")
	}
	s.writeAudit(ctx, actorID, models.AuditActionEnrollmentCreate, studentID, courseID)
	return nil
}

func (s *EnrollmentService) writeAudit(ctx context.Context, actorID string, action models.AuditAction, studentID, courseID string) {
	raw, _ := json.Marshal(map[string]string{"student_id": studentID, "course_id": courseID})
	log := &models.AuditLog{
		Action:     action,
		Resource:   "enrollment",
		ResourceID: &courseID,
		NewValues:  raw,
		CreatedAt:  time.Now().UTC(),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
}
