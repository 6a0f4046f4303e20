package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
	"github.com/neurons-lms/lms-api/pkg/export"
)

const catalogCacheKey = "lms:catalog:v1"

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	ListEnrolledByUser(ctx context.Context, userID string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	MissingIDs(ctx context.Context, courseIDs []string) ([]string, error)
	ReassignInstructor(ctx context.Context, instructorID string, courseIDs []string) error
}

type enrollmentReader interface {
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	ListStudents(ctx context.Context, courseID string) ([]models.EnrolledStudent, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type moduleLister interface {
	ListRoots(ctx context.Context, courseID string) ([]models.Module, error)
}

type courseUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Title        string     `json:"title" validate:"required"`
	Code         string     `json:"code" validate:"required"`
	Description  string     `json:"description"`
	InstructorID string     `json:"instructor_id" validate:"required,uuid"`
	Semester     string     `json:"semester" validate:"required,oneof=Spring Summer Fall Winter"`
	Year         int        `json:"year" validate:"required,gte=2000,lte=2100"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
}

// AssignCoursesRequest replaces an instructor's complete course list.
type AssignCoursesRequest struct {
	CourseIDs []string `json:"course_ids" validate:"dive,uuid"`
}

// CourseDetail bundles a course with its top-level modules.
type CourseDetail struct {
	Course        models.Course   `json:"course"`
	Modules       []models.Module `json:"modules"`
	EnrolledCount int             `json:"enrolled_count"`
}

// CourseService provides course catalog and ownership use cases.
type CourseService struct {
	courses     courseRepository
	enrollments enrollmentReader
	modules     moduleLister
	users       courseUserRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService. The redis client may be nil,
// in which case catalog caching is disabled.
func NewCourseService(
	courses courseRepository,
	enrollments enrollmentReader,
	modules moduleLister,
	users courseUserRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CourseService{
		courses:     courses,
		enrollments: enrollments,
		modules:     modules,
		users:       users,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// ListForUser returns the courses visible to the caller. Admins browse the
// full catalog, instructors see courses they own, students see the courses
// they are enrolled in.
func (s *CourseService) ListForUser(ctx context.Context, claims *models.JWTClaims, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	switch {
	case claims.IsAdmin():
		return s.catalog(ctx, filter)
	case claims.Role == models.RoleInstructor:
		courses, err := s.courses.ListByInstructor(ctx, claims.UserID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
		}
		return courses, &models.Pagination{Page: 1, PageSize: len(courses), TotalCount: len(courses)}, nil
	default:
		courses, err := s.courses.ListEnrolledByUser(ctx, claims.UserID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
		}
		return courses, &models.Pagination{Page: 1, PageSize: len(courses), TotalCount: len(courses)}, nil
	}
}

func (s *CourseService) catalog(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	cacheable := s.cache != nil && filter == (models.CourseFilter{})

	if cacheable {
		payload, err := s.cache.Get(ctx, catalogCacheKey).Bytes()
		switch {
		case err == nil:
			var cached struct {
				Courses    []models.Course   `json:"courses"`
				Pagination models.Pagination `json:"pagination"`
			}
			if err := json.Unmarshal(payload, &cached); err == nil {
				s.recordCache("get", "hit")
				return cached.Courses, &cached.Pagination, nil
			}
			s.recordCache("get", "error")
		case errors.Is(err, redis.Nil):
			s.recordCache("get", "miss")
		default:
			s.recordCache("get", "error")
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}

	if cacheable {
		payload, err := json.Marshal(struct {
			Courses    []models.Course   `json:"courses"`
			Pagination models.Pagination `json:"pagination"`
		}{Courses: courses, Pagination: *pagination})
		if err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.recordCache("set", "error")
				s.logger.Warn("catalog cache write failed", zap.Error(err))
			} else {
				s.recordCache("set", "ok")
			}
		}
	}

	return courses, pagination, nil
}

// GetDetail returns a course with its top-level modules. Students must be
// enrolled; a non-enrolled student gets a forbidden error carrying no course
// or module data. Instructors and admins are unrestricted.
func (s *CourseService) GetDetail(ctx context.Context, claims *models.JWTClaims, courseID string) (*CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if claims.Role == models.RoleStudent && !claims.IsAdmin() {
		enrolled, err := s.enrollments.IsEnrolled(ctx, claims.UserID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "")
		}
	}

	modules, err := s.modules.ListRoots(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}

	count, err := s.enrollments.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}

	return &CourseDetail{Course: *course, Modules: modules, EnrolledCount: count}, nil
}

// Create adds a new course with a mandatory instructor owner.
func (s *CourseService) Create(ctx context.Context, actorID string, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	if _, err := s.courses.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}

	instructor, err := s.users.FindByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned user is not an instructor")
	}

	course := &models.Course{
		Title:        req.Title,
		Code:         req.Code,
		Description:  req.Description,
		InstructorID: &req.InstructorID,
		Semester:     req.Semester,
		Year:         req.Year,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.writeAudit(ctx, actorID, models.AuditActionCourseCreate, course.ID, map[string]interface{}{
		"code":          course.Code,
		"title":         course.Title,
		"instructor_id": req.InstructorID,
	})

	name := instructor.FullName()
	course.InstructorName = &name
	return course, nil
}

// AssignCourses replaces the instructor's entire course list. Courses the
// instructor currently holds but that are absent from the request are
// released; every listed course is claimed, even when another instructor
// held it. The swap happens in one transaction.
func (s *CourseService) AssignCourses(ctx context.Context, actorID, instructorID string, req AssignCoursesRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	instructor, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor {
		return appErrors.Clone(appErrors.ErrValidation, "courses can only be assigned to instructors")
	}

	courseIDs := dedupe(req.CourseIDs)

	missing, err := s.courses.MissingIDs(ctx, courseIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify course ids")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown course ids: %s", strings.Join(missing, ", ")))
	}

	if err := s.courses.ReassignInstructor(ctx, instructorID, courseIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign courses")
	}

	s.invalidateCatalog(ctx)
	s.writeAudit(ctx, actorID, models.AuditActionCourseAssign, instructorID, map[string]interface{}{
		"instructor_id": instructorID,
		"course_ids":    courseIDs,
	})

	return nil
}

// Roster returns the enrolled students of a course ordered by last name.
func (s *CourseService) Roster(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	students, err := s.enrollments.ListStudents(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return students, nil
}

// ExportRoster renders the roster of a course as CSV or PDF bytes.
func (s *CourseService) ExportRoster(ctx context.Context, courseID, format string) ([]byte, string, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	students, err := s.enrollments.ListStudents(ctx, courseID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Student ID", "Last Name", "First Name", "Email", "Enrolled At"},
	}
	for _, st := range students {
		sid := ""
		if st.StudentID != nil {
			sid = *st.StudentID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student ID":  sid,
			"Last Name":   st.LastName,
			"First Name":  st.FirstName,
			"Email":       st.Email,
			"Enrolled At": st.EnrolledAt.Format("2006-01-02"),
		})
	}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return payload, "text/csv", nil
	case "pdf":
		title := fmt.Sprintf("%s roster", course.Code)
		payload, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, catalogCacheKey).Err(); err != nil {
		s.recordCache("del", "error")
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
		return
	}
	s.recordCache("del", "ok")
}

func (s *CourseService) recordCache(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(operation, result)
	}
}

func (s *CourseService) writeAudit(ctx context.Context, actorID string, action models.AuditAction, resourceID string, values map[string]interface{}) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "course",
		ResourceID: &resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if values != nil {
		if raw, err := json.Marshal(values); err == nil {
			log.NewValues = raw
		}
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record course audit log", zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
