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

const moduleColumns = "id, course_id, title, description, parent_id, available_from, available_until, published, created_at, updated_at"

// ModuleRepository handles persistence of course modules.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// FindByID returns a module by identifier.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.Module, error) {
	query := fmt.Sprintf("SELECT %s FROM modules WHERE id = $1 LIMIT 1", moduleColumns)
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find module by id: %w", err)
	}
	return &module, nil
}

// ListByCourse returns every module of a course ordered by title.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	query := fmt.Sprintf("SELECT %s FROM modules WHERE course_id = $1 ORDER BY title ASC", moduleColumns)
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// ListRoots returns the top-level modules of a course.
func (r *ModuleRepository) ListRoots(ctx context.Context, courseID string) ([]models.Module, error) {
	query := fmt.Sprintf("SELECT %s FROM modules WHERE course_id = $1 AND parent_id IS NULL ORDER BY title ASC", moduleColumns)
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list root modules: %w", err)
	}
	return modules, nil
}

// ListChildren returns the direct submodules of a module.
func (r *ModuleRepository) ListChildren(ctx context.Context, parentID string) ([]models.Module, error) {
	query := fmt.Sprintf("SELECT %s FROM modules WHERE parent_id = $1 ORDER BY title ASC", moduleColumns)
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, parentID); err != nil {
		return nil, fmt.Errorf("list submodules: %w", err)
	}
	return modules, nil
}

// Create inserts a new module.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if module.CreatedAt.IsZero() {
		module.CreatedAt = now
	}
	module.UpdatedAt = now

	const query = `INSERT INTO modules (id, course_id, title, description, parent_id, available_from, available_until, published, created_at, updated_at)
        VALUES (:id, :course_id, :title, :description, :parent_id, :available_from, :available_until, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a module.
func (r *ModuleRepository) Update(ctx context.Context, module *models.Module) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET title = :title, description = :description, parent_id = :parent_id, available_from = :available_from, available_until = :available_until, published = :published, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// Delete removes a module. Contents cascade; submodules keep existing with
// their parent reference cleared by the schema.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM modules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return nil
}
