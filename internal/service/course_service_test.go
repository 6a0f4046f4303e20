package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
)

// mockCourseRepo mirrors the transactional reassignment semantics: the
// instructor's current courses are released before the listed ones are
// claimed.
type mockCourseRepo struct {
	courses     map[string]models.Course
	lastFilter  models.CourseFilter
	listByOwner map[string][]models.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]models.Course)}
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	m.lastFilter = filter
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			course := c
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		if c.InstructorID != nil && *c.InstructorID == instructorID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) ListEnrolledByUser(ctx context.Context, userID string) ([]models.Course, error) {
	return m.listByOwner[userID], nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "generated"
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) MissingIDs(ctx context.Context, courseIDs []string) ([]string, error) {
	var missing []string
	for _, id := range courseIDs {
		if _, ok := m.courses[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *mockCourseRepo) ReassignInstructor(ctx context.Context, instructorID string, courseIDs []string) error {
	for id, c := range m.courses {
		if c.InstructorID != nil && *c.InstructorID == instructorID {
			c.InstructorID = nil
			m.courses[id] = c
		}
	}
	for _, id := range courseIDs {
		c, ok := m.courses[id]
		if !ok {
			return sql.ErrNoRows
		}
		owner := instructorID
		c.InstructorID = &owner
		m.courses[id] = c
	}
	return nil
}

type mockEnrollmentReader struct {
	enrolled map[string]map[string]bool
	roster   map[string][]models.EnrolledStudent
}

func (m *mockEnrollmentReader) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	return m.enrolled[courseID][userID], nil
}

func (m *mockEnrollmentReader) ListStudents(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	return m.roster[courseID], nil
}

func (m *mockEnrollmentReader) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return len(m.enrolled[courseID]), nil
}

type mockModuleLister struct {
	roots map[string][]models.Module
}

func (m *mockModuleLister) ListRoots(ctx context.Context, courseID string) ([]models.Module, error) {
	return m.roots[courseID], nil
}

func newCourseService(courses *mockCourseRepo, enrollments *mockEnrollmentReader, users *mockUserRepo) *CourseService {
	if enrollments == nil {
		enrollments = &mockEnrollmentReader{enrolled: map[string]map[string]bool{}}
	}
	return NewCourseService(courses, enrollments, &mockModuleLister{}, users, nil, 0, nil, validator.New(), zap.NewNop())
}

func ownerOf(repo *mockCourseRepo, courseID string) string {
	c := repo.courses[courseID]
	if c.InstructorID == nil {
		return ""
	}
	return *c.InstructorID
}

func instructorUser(id string) models.User {
	return models.User{ID: id, Email: id + "@neurons-lms.test", FirstName: "I", LastName: id, Role: models.RoleInstructor, Active: true}
}

func courseOwnedBy(id, owner string) models.Course {
	c := models.Course{ID: id, Title: id, Code: "CODE-" + id, Semester: "Fall", Year: 2026}
	if owner != "" {
		c.InstructorID = &owner
	}
	return c
}

func TestCourseServiceAssignCoursesReplacesOwnership(t *testing.T) {
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "inst-a")
	courses.courses["c2"] = courseOwnedBy("c2", "inst-a")

	users := newMockUserRepo()
	users.users["inst-a"] = instructorUser("inst-a")
	users.users["inst-b"] = instructorUser("inst-b")

	svc := newCourseService(courses, nil, users)

	// inst-b takes over course 1; inst-a keeps course 2 untouched.
	err := svc.AssignCourses(context.Background(), "admin-1", "inst-b", AssignCoursesRequest{CourseIDs: []string{"c1"}})
	require.NoError(t, err)
	assert.Equal(t, "inst-b", ownerOf(courses, "c1"))
	assert.Equal(t, "inst-a", ownerOf(courses, "c2"))

	// Reassigning inst-a to only course 2 releases nothing extra.
	err = svc.AssignCourses(context.Background(), "admin-1", "inst-a", AssignCoursesRequest{CourseIDs: []string{"c2"}})
	require.NoError(t, err)
	assert.Equal(t, "inst-b", ownerOf(courses, "c1"))
	assert.Equal(t, "inst-a", ownerOf(courses, "c2"))
}

func TestCourseServiceAssignCoursesEmptyListReleasesAll(t *testing.T) {
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "inst-a")
	courses.courses["c2"] = courseOwnedBy("c2", "inst-a")

	users := newMockUserRepo()
	users.users["inst-a"] = instructorUser("inst-a")

	svc := newCourseService(courses, nil, users)

	err := svc.AssignCourses(context.Background(), "admin-1", "inst-a", AssignCoursesRequest{})
	require.NoError(t, err)
	assert.Empty(t, ownerOf(courses, "c1"))
	assert.Empty(t, ownerOf(courses, "c2"))
}

func TestCourseServiceAssignCoursesUnknownIDs(t *testing.T) {
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "")

	users := newMockUserRepo()
	users.users["inst-a"] = instructorUser("inst-a")

	svc := newCourseService(courses, nil, users)

	err := svc.AssignCourses(context.Background(), "admin-1", "inst-a", AssignCoursesRequest{CourseIDs: []string{"c1", "ghost"}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "ghost")
	// Nothing was reassigned.
	assert.Empty(t, ownerOf(courses, "c1"))
}

func TestCourseServiceAssignCoursesRejectsNonInstructor(t *testing.T) {
	courses := newMockCourseRepo()
	users := newMockUserRepo()
	users.users["stud-1"] = models.User{ID: "stud-1", Role: models.RoleStudent, Active: true}

	svc := newCourseService(courses, nil, users)

	err := svc.AssignCourses(context.Background(), "admin-1", "stud-1", AssignCoursesRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceListForUserScopesByRole(t *testing.T) {
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "inst-a")
	courses.courses["c2"] = courseOwnedBy("c2", "inst-b")
	courses.listByOwner = map[string][]models.Course{
		"stud-1": {courses.courses["c2"]},
	}

	svc := newCourseService(courses, nil, newMockUserRepo())

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	all, _, err := svc.ListForUser(context.Background(), admin, models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	instructor := &models.JWTClaims{UserID: "inst-a", Role: models.RoleInstructor}
	own, _, err := svc.ListForUser(context.Background(), instructor, models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "c1", own[0].ID)

	student := &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent}
	enrolled, _, err := svc.ListForUser(context.Background(), student, models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "c2", enrolled[0].ID)
}

func TestCourseServiceGetDetailRequiresEnrollment(t *testing.T) {
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "inst-a")
	enrollments := &mockEnrollmentReader{enrolled: map[string]map[string]bool{
		"c1": {"stud-enrolled": true},
	}}

	svc := newCourseService(courses, enrollments, newMockUserRepo())

	outsider := &models.JWTClaims{UserID: "stud-outside", Role: models.RoleStudent}
	detail, err := svc.GetDetail(context.Background(), outsider, "c1")
	require.Error(t, err)
	assert.Nil(t, detail)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)

	insider := &models.JWTClaims{UserID: "stud-enrolled", Role: models.RoleStudent}
	detail, err = svc.GetDetail(context.Background(), insider, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", detail.Course.ID)

	instructor := &models.JWTClaims{UserID: "inst-other", Role: models.RoleInstructor}
	_, err = svc.GetDetail(context.Background(), instructor, "c1")
	assert.NoError(t, err)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "inst-a")

	users := newMockUserRepo()
	users.users["inst-a"] = instructorUser("inst-a")

	svc := newCourseService(courses, nil, users)

	_, err := svc.Create(context.Background(), "admin-1", CreateCourseRequest{
		Title:        "Duplicate",
		Code:         "CODE-c1",
		InstructorID: "11111111-2222-3333-4444-555555555555",
		Semester:     "Fall",
		Year:         2026,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceCreateRequiresInstructorRole(t *testing.T) {
	courses := newMockCourseRepo()
	users := newMockUserRepo()
	users.users["11111111-2222-3333-4444-555555555555"] = models.User{
		ID: "11111111-2222-3333-4444-555555555555", Role: models.RoleStudent, Active: true,
	}

	svc := newCourseService(courses, nil, users)

	_, err := svc.Create(context.Background(), "admin-1", CreateCourseRequest{
		Title:        "New Course",
		Code:         "NEW-1",
		InstructorID: "11111111-2222-3333-4444-555555555555",
		Semester:     "Spring",
		Year:         2026,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
