package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
)

type contentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Content, error)
	ListByModule(ctx context.Context, moduleID string) ([]models.Content, error)
	Create(ctx context.Context, content *models.Content) error
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, id string) error
}

type contentModuleReader interface {
	FindByID(ctx context.Context, id string) (*models.Module, error)
}

type fileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type downloadSigner interface {
	Generate(contentID, relPath string) (string, time.Time, error)
	Parse(token string) (contentID, relPath string, expiresAt time.Time, err error)
}

// ContentRequest is the payload for creating or editing a content item.
// The type determines which optional fields are allowed.
type ContentRequest struct {
	ModuleID    string             `json:"module_id" validate:"required,uuid"`
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	Type        models.ContentType `json:"content_type" validate:"required"`
	URL         string             `json:"url" validate:"omitempty,url"`

	TimeLimitMinutes   *int `json:"time_limit_minutes" validate:"omitempty,gte=0"`
	MaxAttempts        *int `json:"max_attempts" validate:"omitempty,gte=1"`
	PassingScore       *int `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	ShowCorrectAnswers bool `json:"show_correct_answers"`
	RandomizeQuestions bool `json:"randomize_questions"`
	IsAdaptive         bool `json:"is_adaptive"`

	AllowAnonymous  bool `json:"allow_anonymous"`
	Moderated       bool `json:"moderated"`
	MaxPostsPerUser *int `json:"max_posts_per_user" validate:"omitempty,gte=1"`

	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	Published      bool       `json:"published"`
}

// DownloadLink is a time-limited reference to a stored content file.
type DownloadLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ContentService manages typed content items inside modules.
type ContentService struct {
	contents     contentRepository
	modules      contentModuleReader
	files        fileStore
	signer       downloadSigner
	maxUpload    int64
	allowedMIMEs map[string]struct{}
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewContentService constructs a ContentService. An empty allowedMIMEs list
// accepts any file type.
func NewContentService(contents contentRepository, modules contentModuleReader, files fileStore, signer downloadSigner, maxUpload int64, allowedMIMEs []string, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	var allowed map[string]struct{}
	if len(allowedMIMEs) > 0 {
		allowed = make(map[string]struct{}, len(allowedMIMEs))
		for _, m := range allowedMIMEs {
			allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
		}
	}
	return &ContentService{
		contents:     contents,
		modules:      modules,
		files:        files,
		signer:       signer,
		maxUpload:    maxUpload,
		allowedMIMEs: allowed,
		validator:    validate,
		logger:       logger,
	}
}

// Get returns a content item by id.
func (s *ContentService) Get(ctx context.Context, id string) (*models.Content, error) {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return content, nil
}

// ListByModule returns the content items of a module.
func (s *ContentService) ListByModule(ctx context.Context, moduleID string) ([]models.Content, error) {
	if _, err := s.modules.FindByID(ctx, moduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	contents, err := s.contents.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contents")
	}
	return contents, nil
}

// Create adds a content item to a module. File payloads are attached
// afterwards through Upload.
func (s *ContentService) Create(ctx context.Context, req ContentRequest) (*models.Content, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.modules.FindByID(ctx, req.ModuleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	content := s.buildContent(req)
	if err := s.contents.Create(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}
	return content, nil
}

// Update edits a content item. Changing the type away from file releases
// the stored file.
func (s *ContentService) Update(ctx context.Context, id string, req ContentRequest) (*models.Content, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if existing.ModuleID != req.ModuleID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content cannot move between modules")
	}

	content := s.buildContent(req)
	content.ID = existing.ID
	content.ModuleID = existing.ModuleID
	content.CreatedAt = existing.CreatedAt
	if content.Type == models.ContentFile {
		content.FilePath = existing.FilePath
	}

	if err := s.contents.Update(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
	}

	if existing.Type == models.ContentFile && content.Type != models.ContentFile && existing.FilePath != nil {
		if err := s.files.Delete(*existing.FilePath); err != nil {
			s.logger.Warn("failed to remove orphaned content file", zap.Error(err))
		}
	}

	return content, nil
}

// Delete removes a content item and, for file content, its stored file.
func (s *ContentService) Delete(ctx context.Context, id string) error {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if err := s.contents.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}
	if content.FilePath != nil {
		if err := s.files.Delete(*content.FilePath); err != nil {
			s.logger.Warn("failed to remove content file", zap.Error(err))
		}
	}
	return nil
}

// Upload attaches a file to a file-type content item, replacing any
// previous file.
func (s *ContentService) Upload(ctx context.Context, id, filename string, size int64, r io.Reader) (*models.Content, error) {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if content.Type != models.ContentFile {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only file content accepts uploads")
	}
	if size > s.maxUpload {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload size limit")
	}

	cleanName := filepath.Base(strings.TrimSpace(filename))
	if cleanName == "" || cleanName == "." || cleanName == string(filepath.Separator) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid file name")
	}
	if err := s.checkMIME(cleanName); err != nil {
		return nil, err
	}
	relPath := filepath.Join("contents", content.ID, fmt.Sprintf("%s-%s", uuid.NewString()[:8], cleanName))

	stored, err := s.files.SaveStream(relPath, io.LimitReader(r, s.maxUpload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	previous := content.FilePath
	content.FilePath = &stored
	if err := s.contents.Update(ctx, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file path")
	}

	if previous != nil && *previous != stored {
		if err := s.files.Delete(*previous); err != nil {
			s.logger.Warn("failed to remove replaced content file", zap.Error(err))
		}
	}

	return content, nil
}

// DownloadLink issues a time-limited signed token for a stored file.
func (s *ContentService) DownloadLink(ctx context.Context, id string) (*DownloadLink, error) {
	content, err := s.contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if content.Type != models.ContentFile || content.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content has no downloadable file")
	}

	token, expiresAt, err := s.signer.Generate(content.ID, *content.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &DownloadLink{
		Token:     token,
		URL:       fmt.Sprintf("/api/v1/downloads/%s", token),
		ExpiresAt: expiresAt,
	}, nil
}

// OpenDownload resolves a signed token and opens the referenced file. The
// caller owns the returned handle.
func (s *ContentService) OpenDownload(ctx context.Context, token string) (*os.File, *models.Content, error) {
	contentID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}

	content, err := s.contents.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if content.FilePath == nil || *content.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token no longer matches the stored file")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, content, nil
}

// checkMIME rejects uploads whose type, derived from the file extension, is
// outside the configured allow list. The extension drives the check because
// the client-sent Content-Type header is not trustworthy.
func (s *ContentService) checkMIME(filename string) error {
	if len(s.allowedMIMEs) == 0 {
		return nil
	}
	mtype := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if i := strings.Index(mtype, ";"); i >= 0 {
		mtype = strings.TrimSpace(mtype[:i])
	}
	if _, ok := s.allowedMIMEs[strings.ToLower(mtype)]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "file type is not allowed for upload")
	}
	return nil
}

// validateRequest enforces the per-type field rules: a link needs a URL,
// quiz settings only appear on quizzes, discussion settings only on
// discussions.
func (s *ContentService) validateRequest(req ContentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	if !req.Type.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}

	hasQuizFields := req.TimeLimitMinutes != nil || req.MaxAttempts != nil || req.PassingScore != nil ||
		req.ShowCorrectAnswers || req.RandomizeQuestions || req.IsAdaptive
	hasDiscussionFields := req.AllowAnonymous || req.Moderated || req.MaxPostsPerUser != nil

	switch req.Type {
	case models.ContentLink:
		if req.URL == "" {
			return appErrors.Clone(appErrors.ErrValidation, "link content requires a url")
		}
	case models.ContentQuiz:
		if hasDiscussionFields {
			return appErrors.Clone(appErrors.ErrValidation, "discussion settings are not valid for quiz content")
		}
	case models.ContentDiscussion:
		if hasQuizFields {
			return appErrors.Clone(appErrors.ErrValidation, "quiz settings are not valid for discussion content")
		}
	default:
		if hasQuizFields {
			return appErrors.Clone(appErrors.ErrValidation, "quiz settings are only valid for quiz content")
		}
		if hasDiscussionFields {
			return appErrors.Clone(appErrors.ErrValidation, "discussion settings are only valid for discussion content")
		}
	}
	return nil
}

func (s *ContentService) buildContent(req ContentRequest) *models.Content {
	content := &models.Content{
		ModuleID:       req.ModuleID,
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		URL:            req.URL,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
		Published:      req.Published,
	}
	switch req.Type {
	case models.ContentQuiz:
		content.TimeLimitMinutes = req.TimeLimitMinutes
		content.MaxAttempts = req.MaxAttempts
		content.PassingScore = req.PassingScore
		content.ShowCorrectAnswers = req.ShowCorrectAnswers
		content.RandomizeQuestions = req.RandomizeQuestions
		content.IsAdaptive = req.IsAdaptive
	case models.ContentDiscussion:
		content.AllowAnonymous = req.AllowAnonymous
		content.Moderated = req.Moderated
		content.MaxPostsPerUser = req.MaxPostsPerUser
	}
	return content
}
