package models

import "time"

// Course represents a course identified by a unique code. Ownership is a
// nullable reference to an instructor user; at most one instructor holds a
// course at a time, enforced by overwrite during bulk reassignment.
type Course struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Code         string     `db:"code" json:"code"`
	Description  string     `db:"description" json:"description"`
	InstructorID *string    `db:"instructor_id" json:"instructor_id,omitempty"`
	Semester     string     `db:"semester" json:"semester"`
	Year         int        `db:"year" json:"year"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	// InstructorName is resolved by join for display; never written directly.
	InstructorName *string `db:"instructor_name" json:"instructor_name,omitempty"`
}

// CourseFilter captures filtering criteria for the course catalog.
type CourseFilter struct {
	Search    string
	Semester  string
	Year      int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Enrollment links a student to a course.
type Enrollment struct {
	UserID     string    `db:"user_id" json:"user_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrolledStudent is a roster row for a course.
type EnrolledStudent struct {
	ID         string    `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Email      string    `db:"email" json:"email"`
	StudentID  *string   `db:"student_id" json:"student_id,omitempty"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
