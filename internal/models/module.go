package models

import "time"

// Module is a node in a course's content tree. Modules may nest through
// ParentID; a parent must belong to the same course and may not create a
// cycle.
type Module struct {
	ID             string     `db:"id" json:"id"`
	CourseID       string     `db:"course_id" json:"course_id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	ParentID       *string    `db:"parent_id" json:"parent_id,omitempty"`
	AvailableFrom  *time.Time `db:"available_from" json:"available_from,omitempty"`
	AvailableUntil *time.Time `db:"available_until" json:"available_until,omitempty"`
	Published      bool       `db:"published" json:"published"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
