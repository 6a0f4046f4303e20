package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
)

// maxModuleDepth bounds the ancestor walk; trees deeper than this are
// treated as corrupt.
const maxModuleDepth = 64

type moduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Module, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Module, error)
	ListRoots(ctx context.Context, courseID string) ([]models.Module, error)
	ListChildren(ctx context.Context, parentID string) ([]models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	Delete(ctx context.Context, id string) error
}

type moduleCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateModuleRequest is the payload for creating a module.
type CreateModuleRequest struct {
	CourseID       string     `json:"course_id" validate:"required,uuid"`
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	ParentID       *string    `json:"parent_id" validate:"omitempty,uuid"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	Published      bool       `json:"published"`
}

// UpdateModuleRequest is the payload for editing a module.
type UpdateModuleRequest struct {
	Title          string     `json:"title" validate:"required"`
	Description    string     `json:"description"`
	ParentID       *string    `json:"parent_id" validate:"omitempty,uuid"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	Published      bool       `json:"published"`
}

// ModuleService manages the nested module tree of a course.
type ModuleService struct {
	modules   moduleRepository
	courses   moduleCourseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs a ModuleService.
func NewModuleService(modules moduleRepository, courses moduleCourseReader, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ModuleService{modules: modules, courses: courses, validator: validate, logger: logger}
}

// Get returns a module with its direct submodules.
func (s *ModuleService) Get(ctx context.Context, id string) (*models.Module, []models.Module, error) {
	module, err := s.modules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	children, err := s.modules.ListChildren(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submodules")
	}
	return module, children, nil
}

// ListByCourse returns all modules of a course.
func (s *ModuleService) ListByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}
	return modules, nil
}

// Create adds a module to a course, optionally nested under a parent module
// of the same course.
func (s *ModuleService) Create(ctx context.Context, req CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if req.ParentID != nil {
		parent, err := s.modules.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent module not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent module")
		}
		if parent.CourseID != req.CourseID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent module belongs to a different course")
		}
	}

	module := &models.Module{
		CourseID:       req.CourseID,
		Title:          req.Title,
		Description:    req.Description,
		ParentID:       req.ParentID,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
		Published:      req.Published,
	}
	if err := s.modules.Create(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	return module, nil
}

// Update edits a module. Re-parenting is validated so the tree stays a
// tree: the new parent must live in the same course and must not be the
// module itself or one of its descendants.
func (s *ModuleService) Update(ctx context.Context, id string, req UpdateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid module payload")
	}

	module, err := s.modules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a module cannot be its own parent")
		}
		parent, err := s.modules.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent module not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent module")
		}
		if parent.CourseID != module.CourseID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent module belongs to a different course")
		}
		cyclic, err := s.isDescendantOf(ctx, parent, id)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cannot move a module under one of its own submodules")
		}
	}

	module.Title = req.Title
	module.Description = req.Description
	module.ParentID = req.ParentID
	module.AvailableFrom = req.AvailableFrom
	module.AvailableUntil = req.AvailableUntil
	module.Published = req.Published

	if err := s.modules.Update(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update module")
	}
	return module, nil
}

// Delete removes a module. Contents are removed with it; direct submodules
// become top-level modules of the course.
func (s *ModuleService) Delete(ctx context.Context, id string) error {
	if _, err := s.modules.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	if err := s.modules.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete module")
	}
	return nil
}

// isDescendantOf walks the ancestor chain of candidate and reports whether
// moduleID appears in it.
func (s *ModuleService) isDescendantOf(ctx context.Context, candidate *models.Module, moduleID string) (bool, error) {
	current := candidate
	for depth := 0; current.ParentID != nil; depth++ {
		if depth >= maxModuleDepth {
			return false, appErrors.Clone(appErrors.ErrValidation, "module tree is too deep")
		}
		if *current.ParentID == moduleID {
			return true, nil
		}
		next, err := s.modules.FindByID(ctx, *current.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk module tree")
		}
		current = next
	}
	return false, nil
}
