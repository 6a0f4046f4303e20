package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/neurons-lms/lms-api/internal/models"
)

const contentColumns = `id, module_id, title, description, content_type, file_path, url,
        time_limit_minutes, max_attempts, passing_score, show_correct_answers, randomize_questions, is_adaptive,
        allow_anonymous, moderated, max_posts_per_user,
        available_from, available_until, published, created_at, updated_at`

// ContentRepository handles persistence of module content items.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// FindByID returns a content item by identifier.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (*models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM contents WHERE id = $1 LIMIT 1", contentColumns)
	var content models.Content
	if err := r.db.GetContext(ctx, &content, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find content by id: %w", err)
	}
	return &content, nil
}

// ListByModule returns the content items of a module ordered by title.
func (r *ContentRepository) ListByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	query := fmt.Sprintf("SELECT %s FROM contents WHERE module_id = $1 ORDER BY title ASC", contentColumns)
	var contents []models.Content
	if err := r.db.SelectContext(ctx, &contents, query, moduleID); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return contents, nil
}

// Create inserts a new content item.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	const query = `INSERT INTO contents (id, module_id, title, description, content_type, file_path, url,
        time_limit_minutes, max_attempts, passing_score, show_correct_answers, randomize_questions, is_adaptive,
        allow_anonymous, moderated, max_posts_per_user,
        available_from, available_until, published, created_at, updated_at)
        VALUES (:id, :module_id, :title, :description, :content_type, :file_path, :url,
        :time_limit_minutes, :max_attempts, :passing_score, :show_correct_answers, :randomize_questions, :is_adaptive,
        :allow_anonymous, :moderated, :max_posts_per_user,
        :available_from, :available_until, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a content item.
func (r *ContentRepository) Update(ctx context.Context, content *models.Content) error {
	content.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contents SET title = :title, description = :description, content_type = :content_type, file_path = :file_path, url = :url,
        time_limit_minutes = :time_limit_minutes, max_attempts = :max_attempts, passing_score = :passing_score,
        show_correct_answers = :show_correct_answers, randomize_questions = :randomize_questions, is_adaptive = :is_adaptive,
        allow_anonymous = :allow_anonymous, moderated = :moderated, max_posts_per_user = :max_posts_per_user,
        available_from = :available_from, available_until = :available_until, published = :published, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, content); err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// Delete removes a content item.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM contents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}
