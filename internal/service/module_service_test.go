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

type mockModuleRepo struct {
	modules map[string]models.Module
	deleted []string
}

func newMockModuleRepo() *mockModuleRepo {
	return &mockModuleRepo{modules: make(map[string]models.Module)}
}

func (m *mockModuleRepo) FindByID(ctx context.Context, id string) (*models.Module, error) {
	if mod, ok := m.modules[id]; ok {
		return &mod, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockModuleRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	var out []models.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			out = append(out, mod)
		}
	}
	return out, nil
}

func (m *mockModuleRepo) ListRoots(ctx context.Context, courseID string) ([]models.Module, error) {
	var out []models.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID && mod.ParentID == nil {
			out = append(out, mod)
		}
	}
	return out, nil
}

func (m *mockModuleRepo) ListChildren(ctx context.Context, parentID string) ([]models.Module, error) {
	var out []models.Module
	for _, mod := range m.modules {
		if mod.ParentID != nil && *mod.ParentID == parentID {
			out = append(out, mod)
		}
	}
	return out, nil
}

func (m *mockModuleRepo) Create(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = "generated"
	}
	m.modules[module.ID] = *module
	return nil
}

func (m *mockModuleRepo) Update(ctx context.Context, module *models.Module) error {
	m.modules[module.ID] = *module
	return nil
}

func (m *mockModuleRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.modules, id)
	return nil
}

func moduleIn(course, id string, parent *string) models.Module {
	return models.Module{ID: id, CourseID: course, Title: id, ParentID: parent}
}

func newModuleFixture() (*ModuleService, *mockModuleRepo, *mockCourseRepo) {
	modules := newMockModuleRepo()
	courses := newMockCourseRepo()
	courses.courses["c1"] = courseOwnedBy("c1", "inst-a")
	courses.courses["c2"] = courseOwnedBy("c2", "inst-b")
	svc := NewModuleService(modules, courses, validator.New(), zap.NewNop())
	return svc, modules, courses
}

func TestModuleServiceCreateNested(t *testing.T) {
	svc, modules, _ := newModuleFixture()
	modules.modules["root"] = moduleIn("c1", "root", nil)

	parent := "root"
	module, err := svc.Create(context.Background(), CreateModuleRequest{
		CourseID: "c1",
		Title:    "Week 1",
		ParentID: &parent,
	})
	require.NoError(t, err)
	require.NotNil(t, module.ParentID)
	assert.Equal(t, "root", *module.ParentID)
}

func TestModuleServiceCreateRejectsCrossCourseParent(t *testing.T) {
	svc, modules, _ := newModuleFixture()
	modules.modules["other"] = moduleIn("c2", "other", nil)

	parent := "other"
	_, err := svc.Create(context.Background(), CreateModuleRequest{
		CourseID: "c1",
		Title:    "Week 1",
		ParentID: &parent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestModuleServiceUpdateRejectsSelfParent(t *testing.T) {
	svc, modules, _ := newModuleFixture()
	modules.modules["m1"] = moduleIn("c1", "m1", nil)

	self := "m1"
	_, err := svc.Update(context.Background(), "m1", UpdateModuleRequest{Title: "m1", ParentID: &self})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestModuleServiceUpdateRejectsCycle(t *testing.T) {
	svc, modules, _ := newModuleFixture()
	// m1 -> m2 -> m3 chain; moving m1 under m3 would close a cycle.
	m1 := "m1"
	m2 := "m2"
	modules.modules["m1"] = moduleIn("c1", "m1", nil)
	modules.modules["m2"] = moduleIn("c1", "m2", &m1)
	modules.modules["m3"] = moduleIn("c1", "m3", &m2)

	m3 := "m3"
	_, err := svc.Update(context.Background(), "m1", UpdateModuleRequest{Title: "m1", ParentID: &m3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// The original tree is untouched.
	assert.Nil(t, modules.modules["m1"].ParentID)
}

func TestModuleServiceUpdateValidReparent(t *testing.T) {
	svc, modules, _ := newModuleFixture()
	m1 := "m1"
	modules.modules["m1"] = moduleIn("c1", "m1", nil)
	modules.modules["m2"] = moduleIn("c1", "m2", &m1)
	modules.modules["m3"] = moduleIn("c1", "m3", nil)

	m3 := "m3"
	updated, err := svc.Update(context.Background(), "m2", UpdateModuleRequest{Title: "m2", ParentID: &m3})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, "m3", *updated.ParentID)
}

func TestModuleServiceDelete(t *testing.T) {
	svc, modules, _ := newModuleFixture()
	modules.modules["m1"] = moduleIn("c1", "m1", nil)

	require.NoError(t, svc.Delete(context.Background(), "m1"))
	assert.Equal(t, []string{"m1"}, modules.deleted)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
