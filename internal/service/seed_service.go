package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/neurons-lms/lms-api/internal/models"
)

// Fixed demo course created by the seed routine.
const (
	SeedCourseCode  = "NEURONS-101"
	SeedCourseTitle = "Introduction to Neurons LMS"

	// DefaultSeedPassword is used for every demo account unless overridden.
	DefaultSeedPassword = "testpass123"
)

type seedUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ListByRole(ctx context.Context, role models.UserRole, limit int) ([]models.User, error)
}

type seedCourseRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
}

type seedEnroller interface {
	Enroll(ctx context.Context, userID, courseID string) error
}

type seedAccount struct {
	Email     string
	FirstName string
	LastName  string
	Role      models.UserRole
	StudentID string
	Staff     bool
	Superuser bool
}

// seedAccounts are the fixed demo accounts, in creation order.
var seedAccounts = []seedAccount{
	{Email: "admin@neurons-lms.test", FirstName: "Ada", LastName: "Admin", Role: models.RoleAdmin, Staff: true, Superuser: true},
	{Email: "instructor@neurons-lms.test", FirstName: "Ivan", LastName: "Instructor", Role: models.RoleInstructor},
	{Email: "instructor2@neurons-lms.test", FirstName: "Irene", LastName: "Instructor", Role: models.RoleInstructor},
	{Email: "student@neurons-lms.test", FirstName: "Sam", LastName: "Student", Role: models.RoleStudent, StudentID: "S1000001"},
	{Email: "student2@neurons-lms.test", FirstName: "Sofia", LastName: "Student", Role: models.RoleStudent, StudentID: "S1000002"},
	{Email: "student3@neurons-lms.test", FirstName: "Stefan", LastName: "Student", Role: models.RoleStudent, StudentID: "S1000003"},
}

// SeedOptions configures a seed run.
type SeedOptions struct {
	Password   string
	WithCourse bool
}

// SeedSummary reports what a seed run changed.
type SeedSummary struct {
	UsersCreated     []string
	UsersSkipped     []string
	CourseCreated    bool
	CourseSkipped    bool
	StudentsEnrolled int
}

// SeedService provisions the fixed demo accounts and optionally a demo
// course. Running it repeatedly never overwrites existing data.
type SeedService struct {
	users       seedUserRepository
	courses     seedCourseRepository
	enrollments seedEnroller
	logger      *zap.Logger
	now         func() time.Time
}

// NewSeedService constructs a SeedService.
func NewSeedService(users seedUserRepository, courses seedCourseRepository, enrollments seedEnroller, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{users: users, courses: courses, enrollments: enrollments, logger: logger, now: time.Now}
}

// Run creates the missing demo accounts and, when requested, the demo
// course with its instructor and two enrolled students.
func (s *SeedService) Run(ctx context.Context, opts SeedOptions) (*SeedSummary, error) {
	password := opts.Password
	if password == "" {
		password = DefaultSeedPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	summary := &SeedSummary{}

	for _, account := range seedAccounts {
		_, err := s.users.FindByEmail(ctx, account.Email)
		if err == nil {
			summary.UsersSkipped = append(summary.UsersSkipped, account.Email)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check seed account %s: %w", account.Email, err)
		}

		user := &models.User{
			Email:        account.Email,
			PasswordHash: string(hash),
			FirstName:    account.FirstName,
			LastName:     account.LastName,
			Role:         account.Role,
			IsStaff:      account.Staff,
			IsSuperuser:  account.Superuser,
			Active:       true,
		}
		if account.StudentID != "" {
			sid := account.StudentID
			user.StudentID = &sid
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create seed account %s: %w", account.Email, err)
		}
		summary.UsersCreated = append(summary.UsersCreated, account.Email)
		s.logger.Info("seeded account", zap.String("email", account.Email), zap.String("role", string(account.Role)))
	}

	if opts.WithCourse {
		if err := s.seedCourse(ctx, summary); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

func (s *SeedService) seedCourse(ctx context.Context, summary *SeedSummary) error {
	if _, err := s.courses.FindByCode(ctx, SeedCourseCode); err == nil {
		summary.CourseSkipped = true
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check seed course: %w", err)
	}

	instructors, err := s.users.ListByRole(ctx, models.RoleInstructor, 1)
	if err != nil {
		return fmt.Errorf("find seed instructor: %w", err)
	}
	if len(instructors) == 0 {
		s.logger.Warn("no instructor available, skipping the demo course")
		summary.CourseSkipped = true
		return nil
	}

	now := s.now()
	semester := "Fall"
	if now.Month() <= time.June {
		semester = "Spring"
	}

	course := &models.Course{
		Title:        SeedCourseTitle,
		Code:         SeedCourseCode,
		Description:  "A guided tour through the platform for new users.",
		InstructorID: &instructors[0].ID,
		Semester:     semester,
		Year:         now.Year(),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return fmt.Errorf("create seed course: %w", err)
	}
	summary.CourseCreated = true
	s.logger.Info("seeded course", zap.String("code", course.Code), zap.String("instructor_id", instructors[0].ID))

	students, err := s.users.ListByRole(ctx, models.RoleStudent, 2)
	if err != nil {
		return fmt.Errorf("find seed students: %w", err)
	}
	for _, student := range students {
		if err := s.enrollments.Enroll(ctx, student.ID, course.ID); err != nil {
			return fmt.Errorf("enroll seed student %s: %w", student.Email, err)
		}
		summary.StudentsEnrolled++
	}

	return nil
}
