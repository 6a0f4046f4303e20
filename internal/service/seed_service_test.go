package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/neurons-lms/lms-api/internal/models"
)

type seedFixture struct {
	svc         *SeedService
	users       *seedUserStore
	courses     *mockCourseRepo
	enrollments *mockEnrollRepo
}

// seedUserStore preserves creation order, which the course seeding relies
// on to pick the first instructor and students.
type seedUserStore struct {
	ordered []models.User
}

func (s *seedUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.ordered {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *seedUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = user.Email
	}
	s.ordered = append(s.ordered, *user)
	return nil
}

func (s *seedUserStore) ListByRole(ctx context.Context, role models.UserRole, limit int) ([]models.User, error) {
	var out []models.User
	for _, u := range s.ordered {
		if u.Role == role {
			out = append(out, u)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func newSeedFixture() *seedFixture {
	users := &seedUserStore{}
	courses := newMockCourseRepo()
	enrollments := newMockEnrollRepo()
	svc := NewSeedService(users, courses, enrollments, zap.NewNop())
	return &seedFixture{svc: svc, users: users, courses: courses, enrollments: enrollments}
}

func TestSeedServiceCreatesAllAccounts(t *testing.T) {
	f := newSeedFixture()

	summary, err := f.svc.Run(context.Background(), SeedOptions{})
	require.NoError(t, err)
	assert.Len(t, summary.UsersCreated, 6)
	assert.Empty(t, summary.UsersSkipped)

	admin, err := f.users.FindByEmail(context.Background(), "admin@neurons-lms.test")
	require.NoError(t, err)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsAdmin())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(DefaultSeedPassword)))

	student, err := f.users.FindByEmail(context.Background(), "student3@neurons-lms.test")
	require.NoError(t, err)
	require.NotNil(t, student.StudentID)
}

func TestSeedServiceIsIdempotent(t *testing.T) {
	f := newSeedFixture()

	first, err := f.svc.Run(context.Background(), SeedOptions{})
	require.NoError(t, err)
	assert.Len(t, first.UsersCreated, 6)

	second, err := f.svc.Run(context.Background(), SeedOptions{})
	require.NoError(t, err)
	assert.Empty(t, second.UsersCreated)
	assert.Len(t, second.UsersSkipped, 6)
	assert.Len(t, f.users.ordered, 6)
}

func TestSeedServiceWithCourse(t *testing.T) {
	f := newSeedFixture()
	f.svc.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }

	summary, err := f.svc.Run(context.Background(), SeedOptions{WithCourse: true})
	require.NoError(t, err)
	assert.True(t, summary.CourseCreated)
	assert.Equal(t, 2, summary.StudentsEnrolled)

	course, err := f.courses.FindByCode(context.Background(), SeedCourseCode)
	require.NoError(t, err)
	assert.Equal(t, SeedCourseTitle, course.Title)
	assert.Equal(t, "Spring", course.Semester)
	assert.Equal(t, 2026, course.Year)

	// Owned by the first instructor created.
	require.NotNil(t, course.InstructorID)
	assert.Equal(t, "instructor@neurons-lms.test", *course.InstructorID)

	// The first two students are enrolled, the third is not.
	assert.True(t, f.enrollments.enrolled[course.ID]["student@neurons-lms.test"])
	assert.True(t, f.enrollments.enrolled[course.ID]["student2@neurons-lms.test"])
	assert.False(t, f.enrollments.enrolled[course.ID]["student3@neurons-lms.test"])
}

func TestSeedServiceWithCourseSkipsExisting(t *testing.T) {
	f := newSeedFixture()

	first, err := f.svc.Run(context.Background(), SeedOptions{WithCourse: true})
	require.NoError(t, err)
	assert.True(t, first.CourseCreated)

	second, err := f.svc.Run(context.Background(), SeedOptions{WithCourse: true})
	require.NoError(t, err)
	assert.False(t, second.CourseCreated)
	assert.True(t, second.CourseSkipped)
	assert.Len(t, f.courses.courses, 1)
}

// noInstructorStore hides instructor accounts so course seeding has nobody
// to assign the demo course to.
type noInstructorStore struct {
	*seedUserStore
}

func (s *noInstructorStore) ListByRole(ctx context.Context, role models.UserRole, limit int) ([]models.User, error) {
	if role == models.RoleInstructor {
		return nil, nil
	}
	return s.seedUserStore.ListByRole(ctx, role, limit)
}

func TestSeedServiceWithCourseNoInstructor(t *testing.T) {
	users := &seedUserStore{}
	courses := newMockCourseRepo()
	svc := NewSeedService(&noInstructorStore{users}, courses, newMockEnrollRepo(), zap.NewNop())

	// The course is skipped with a warning; the account summary survives.
	summary, err := svc.Run(context.Background(), SeedOptions{WithCourse: true})
	require.NoError(t, err)
	assert.Len(t, summary.UsersCreated, 6)
	assert.False(t, summary.CourseCreated)
	assert.True(t, summary.CourseSkipped)
	assert.Empty(t, courses.courses)
}

func TestSeedServiceFallSemester(t *testing.T) {
	f := newSeedFixture()
	f.svc.now = func() time.Time { return time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC) }

	_, err := f.svc.Run(context.Background(), SeedOptions{WithCourse: true})
	require.NoError(t, err)

	course, err := f.courses.FindByCode(context.Background(), SeedCourseCode)
	require.NoError(t, err)
	assert.Equal(t, "Fall", course.Semester)
}

func TestSeedServiceCustomPassword(t *testing.T) {
	f := newSeedFixture()

	_, err := f.svc.Run(context.Background(), SeedOptions{Password: "override-pass"})
	require.NoError(t, err)

	admin, err := f.users.FindByEmail(context.Background(), "admin@neurons-lms.test")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("override-pass")))
}
