package models

import "time"

// ContentType enumerates the supported content item kinds.
type ContentType string

const (
	ContentFile       ContentType = "file"
	ContentLink       ContentType = "link"
	ContentQuiz       ContentType = "quiz"
	ContentDiscussion ContentType = "discussion"
)

// Valid reports whether the content type is one of the known kinds.
func (t ContentType) Valid() bool {
	switch t {
	case ContentFile, ContentLink, ContentQuiz, ContentDiscussion:
		return true
	}
	return false
}

// Content is a typed item inside a module. Quiz and discussion settings are
// only meaningful for their respective content types; the service layer
// rejects mismatched fields.
type Content struct {
	ID          string      `db:"id" json:"id"`
	ModuleID    string      `db:"module_id" json:"module_id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Type        ContentType `db:"content_type" json:"content_type"`
	FilePath    *string     `db:"file_path" json:"file_path,omitempty"`
	URL         string      `db:"url" json:"url,omitempty"`

	// Quiz settings.
	TimeLimitMinutes   *int `db:"time_limit_minutes" json:"time_limit_minutes,omitempty"`
	MaxAttempts        *int `db:"max_attempts" json:"max_attempts,omitempty"`
	PassingScore       *int `db:"passing_score" json:"passing_score,omitempty"`
	ShowCorrectAnswers bool `db:"show_correct_answers" json:"show_correct_answers"`
	RandomizeQuestions bool `db:"randomize_questions" json:"randomize_questions"`
	IsAdaptive         bool `db:"is_adaptive" json:"is_adaptive"`

	// Discussion settings.
	AllowAnonymous  bool `db:"allow_anonymous" json:"allow_anonymous"`
	Moderated       bool `db:"moderated" json:"moderated"`
	MaxPostsPerUser *int `db:"max_posts_per_user" json:"max_posts_per_user,omitempty"`

	AvailableFrom  *time.Time `db:"available_from" json:"available_from,omitempty"`
	AvailableUntil *time.Time `db:"available_until" json:"available_until,omitempty"`
	Published      bool       `db:"published" json:"published"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
