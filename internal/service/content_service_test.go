package service

import (
	"context"
	"database/sql"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
)

type mockContentRepo struct {
	contents map[string]models.Content
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{contents: make(map[string]models.Content)}
}

func (m *mockContentRepo) FindByID(ctx context.Context, id string) (*models.Content, error) {
	if c, ok := m.contents[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContentRepo) ListByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	var out []models.Content
	for _, c := range m.contents {
		if c.ModuleID == moduleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContentRepo) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = "generated"
	}
	m.contents[content.ID] = *content
	return nil
}

func (m *mockContentRepo) Update(ctx context.Context, content *models.Content) error {
	m.contents[content.ID] = *content
	return nil
}

func (m *mockContentRepo) Delete(ctx context.Context, id string) error {
	delete(m.contents, id)
	return nil
}

const testModuleID = "11111111-2222-3333-4444-555555555555"

func newContentFixture() (*ContentService, *mockContentRepo) {
	contents := newMockContentRepo()
	modules := newMockModuleRepo()
	modules.modules[testModuleID] = moduleIn("c1", testModuleID, nil)
	svc := NewContentService(contents, modules, nil, nil, 0, nil, validator.New(), zap.NewNop())
	return svc, contents
}

type memFileStore struct {
	saved map[string][]byte
}

func newMemFileStore() *memFileStore {
	return &memFileStore{saved: make(map[string][]byte)}
}

func (m *memFileStore) SaveStream(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *memFileStore) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *memFileStore) Delete(filename string) error {
	delete(m.saved, filename)
	return nil
}

func intPtr(v int) *int { return &v }

func TestContentServiceCreateQuiz(t *testing.T) {
	svc, contents := newContentFixture()

	content, err := svc.Create(context.Background(), ContentRequest{
		ModuleID:         testModuleID,
		Title:            "Midterm",
		Type:             models.ContentQuiz,
		TimeLimitMinutes: intPtr(60),
		MaxAttempts:      intPtr(2),
		PassingScore:     intPtr(70),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContentQuiz, content.Type)
	assert.Equal(t, 60, *content.TimeLimitMinutes)
	assert.Len(t, contents.contents, 1)
}

func TestContentServiceQuizRejectsDiscussionFields(t *testing.T) {
	svc, _ := newContentFixture()

	_, err := svc.Create(context.Background(), ContentRequest{
		ModuleID:       testModuleID,
		Title:          "Midterm",
		Type:           models.ContentQuiz,
		AllowAnonymous: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContentServiceDiscussionRejectsQuizFields(t *testing.T) {
	svc, _ := newContentFixture()

	_, err := svc.Create(context.Background(), ContentRequest{
		ModuleID:    testModuleID,
		Title:       "Forum",
		Type:        models.ContentDiscussion,
		MaxAttempts: intPtr(3),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContentServiceFileRejectsQuizAndDiscussionFields(t *testing.T) {
	svc, _ := newContentFixture()

	_, err := svc.Create(context.Background(), ContentRequest{
		ModuleID:     testModuleID,
		Title:        "Slides",
		Type:         models.ContentFile,
		PassingScore: intPtr(50),
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), ContentRequest{
		ModuleID:  testModuleID,
		Title:     "Slides",
		Type:      models.ContentFile,
		Moderated: true,
	})
	require.Error(t, err)
}

func TestContentServiceLinkRequiresURL(t *testing.T) {
	svc, _ := newContentFixture()

	_, err := svc.Create(context.Background(), ContentRequest{
		ModuleID: testModuleID,
		Title:    "Reading",
		Type:     models.ContentLink,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	content, err := svc.Create(context.Background(), ContentRequest{
		ModuleID: testModuleID,
		Title:    "Reading",
		Type:     models.ContentLink,
		URL:      "https://example.com/paper.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/paper.pdf", content.URL)
}

func TestContentServiceUnknownType(t *testing.T) {
	svc, _ := newContentFixture()

	_, err := svc.Create(context.Background(), ContentRequest{
		ModuleID: testModuleID,
		Title:    "Mystery",
		Type:     models.ContentType("video"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContentServiceUploadRespectsMIMEAllowList(t *testing.T) {
	contents := newMockContentRepo()
	modules := newMockModuleRepo()
	modules.modules[testModuleID] = moduleIn("c1", testModuleID, nil)
	contents.contents["ct1"] = models.Content{ID: "ct1", ModuleID: testModuleID, Title: "Slides", Type: models.ContentFile}

	files := newMemFileStore()
	svc := NewContentService(contents, modules, files, nil, 0, []string{"application/pdf"}, validator.New(), zap.NewNop())

	content, err := svc.Upload(context.Background(), "ct1", "slides.pdf", 4, strings.NewReader("%PDF"))
	require.NoError(t, err)
	require.NotNil(t, content.FilePath)
	assert.Contains(t, files.saved, *content.FilePath)

	_, err = svc.Upload(context.Background(), "ct1", "payload.exe", 4, strings.NewReader("MZxx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, files.saved, 1)
}

func TestContentServiceUpdateCannotMoveModules(t *testing.T) {
	svc, contents := newContentFixture()
	contents.contents["ct1"] = models.Content{ID: "ct1", ModuleID: testModuleID, Title: "Old", Type: models.ContentFile}

	_, err := svc.Update(context.Background(), "ct1", ContentRequest{
		ModuleID: "99999999-8888-7777-6666-555555555555",
		Title:    "Moved",
		Type:     models.ContentFile,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
