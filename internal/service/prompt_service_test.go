package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/internal/repository"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type fakePromptRepo struct {
	system  map[string]*models.SystemPrompt
	uploads map[string]*models.PromptUpload
	limits  map[string]int
}

func newFakePromptRepo() *fakePromptRepo {
	return &fakePromptRepo{
		system:  map[string]*models.SystemPrompt{},
		uploads: map[string]*models.PromptUpload{},
		limits:  map[string]int{},
	}
}

func uploadKey(subjectID, taskID string, fileType models.FileType) string {
	return subjectID + "/" + taskID + "/" + string(fileType)
}

func (f *fakePromptRepo) ListSystem(ctx context.Context, subjectID string, activeOnly bool) ([]models.SystemPrompt, error) {
	out := []models.SystemPrompt{}
	for _, p := range f.system {
		if p.SubjectID == subjectID && (!activeOnly || p.IsActive) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (f *fakePromptRepo) GetSystem(ctx context.Context, id string) (*models.SystemPrompt, error) {
	p, ok := f.system[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (f *fakePromptRepo) CreateSystemWithinLimit(ctx context.Context, prompt *models.SystemPrompt, defaultLimit int) error {
	capacity := defaultLimit
	if l, ok := f.limits[prompt.SubjectID]; ok {
		capacity = l
	}
	count := 0
	for _, p := range f.system {
		if p.SubjectID == prompt.SubjectID {
			count++
		}
	}
	if count >= capacity {
		return &repository.LimitReachedError{Limit: capacity, Count: count}
	}
	prompt.ID = uuid.NewString()
	clone := *prompt
	f.system[prompt.ID] = &clone
	return nil
}

func (f *fakePromptRepo) UpdateSystem(ctx context.Context, prompt *models.SystemPrompt) error {
	clone := *prompt
	f.system[prompt.ID] = &clone
	return nil
}

func (f *fakePromptRepo) DeleteSystem(ctx context.Context, id string) (bool, error) {
	_, ok := f.system[id]
	delete(f.system, id)
	return ok, nil
}

func (f *fakePromptRepo) ListUploads(ctx context.Context, filter models.PromptUploadFilter) ([]models.PromptUpload, error) {
	out := []models.PromptUpload{}
	for _, u := range f.uploads {
		if u.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TaskID != "" && u.TaskID != filter.TaskID {
			continue
		}
		if filter.FileType != "" && u.FileType != filter.FileType {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakePromptRepo) GetUpload(ctx context.Context, subjectID, taskID string, fileType models.FileType) (*models.PromptUpload, error) {
	u, ok := f.uploads[uploadKey(subjectID, taskID, fileType)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (f *fakePromptRepo) GetUploadByID(ctx context.Context, id string) (*models.PromptUpload, error) {
	for _, u := range f.uploads {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePromptRepo) UpsertUpload(ctx context.Context, upload *models.PromptUpload) error {
	key := uploadKey(upload.SubjectID, upload.TaskID, upload.FileType)
	if existing, ok := f.uploads[key]; ok {
		upload.ID = existing.ID
		upload.Version = existing.Version + 1
	} else {
		upload.ID = uuid.NewString()
		upload.Version = 1
	}
	clone := *upload
	f.uploads[key] = &clone
	return nil
}

func (f *fakePromptRepo) DeleteUpload(ctx context.Context, id string) (bool, error) {
	for key, u := range f.uploads {
		if u.ID == id {
			delete(f.uploads, key)
			return true, nil
		}
	}
	return false, nil
}

func newTestPromptService(t *testing.T) (*PromptService, *fakePromptRepo, *fakeSubjectRepo) {
	t.Helper()
	subjects := newFakeSubjectRepo(&models.Subject{SubjectID: "english", SubjectName: "English"})
	repo := newFakePromptRepo()
	return NewPromptService(repo, newTestSubjectService(subjects, nil), 3, nil, nil), repo, subjects
}

func systemPromptReq(name string, priority int, taskIDs ...string) dto.CreateSystemPromptRequest {
	return dto.CreateSystemPromptRequest{SubjectID: "english", Name: name, Content: name + " rules", Priority: priority, TaskIDs: taskIDs}
}

func TestPromptServiceCreateSystemRespectsCap(t *testing.T) {
	svc, _, _ := newTestPromptService(t)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateSystem(ctx, "dev-1", systemPromptReq(name, i))
		require.NoError(t, err)
	}

	_, err := svc.CreateSystem(ctx, "dev-1", systemPromptReq("d", 4))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrLimitExceeded.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "(3)")

	prompts, err := svc.ListSystem(ctx, "english")
	require.NoError(t, err)
	assert.Len(t, prompts, 3)
}

func TestPromptServiceSubjectLimitOverride(t *testing.T) {
	svc, repo, _ := newTestPromptService(t)
	repo.limits["english"] = 1

	_, err := svc.CreateSystem(context.Background(), "dev-1", systemPromptReq("a", 0))
	require.NoError(t, err)
	_, err = svc.CreateSystem(context.Background(), "dev-1", systemPromptReq("b", 1))
	assert.ErrorIs(t, err, appErrors.ErrLimitExceeded)
}

func TestPromptServiceUpdateAndDeleteSystem(t *testing.T) {
	svc, _, subjects := newTestPromptService(t)
	ctx := context.Background()

	created, err := svc.CreateSystem(ctx, "dev-1", systemPromptReq("a", 0))
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	inactive := false
	priority := 7
	updated, err := svc.UpdateSystem(ctx, created.ID, dto.UpdateSystemPromptRequest{IsActive: &inactive, Priority: &priority})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 7, updated.Priority)
	assert.Equal(t, "a", updated.Name)

	subjects.subjects["english"].IsDeleted = true
	err = svc.DeleteSystem(ctx, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	subjects.subjects["english"].IsDeleted = false
	require.NoError(t, svc.DeleteSystem(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteSystem(ctx, created.ID), appErrors.ErrNotFound)
}

func TestPromptServiceUploadVersioning(t *testing.T) {
	svc, _, _ := newTestPromptService(t)
	ctx := context.Background()
	req := dto.UpsertPromptUploadRequest{SubjectID: "english", TaskID: "T1", FileType: "problem", PromptText: "v1"}

	first, err := svc.UpsertUpload(ctx, "dev-1", req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	req.PromptText = "v2"
	second, err := svc.UpsertUpload(ctx, "dev-1", req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)

	current, err := svc.CurrentUpload(ctx, "english", "T1", "problem")
	require.NoError(t, err)
	assert.Equal(t, "v2", current.PromptText)

	list, err := svc.ListUploads(ctx, "english", "", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.CurrentUpload(ctx, "english", "T1", "answer")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.ListUploads(ctx, "english", "", "appendix")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, svc.DeleteUpload(ctx, first.ID))
	assert.ErrorIs(t, svc.DeleteUpload(ctx, first.ID), appErrors.ErrNotFound)
}

func TestPromptServiceDeleteUploadOfDeletedSubject(t *testing.T) {
	svc, repo, subjects := newTestPromptService(t)
	ctx := context.Background()

	upload, err := svc.UpsertUpload(ctx, "dev-1", dto.UpsertPromptUploadRequest{SubjectID: "english", TaskID: "T1", FileType: "answer", PromptText: "v1"})
	require.NoError(t, err)

	subjects.subjects["english"].IsDeleted = true
	err = svc.DeleteUpload(ctx, upload.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Contains(t, repo.uploads, uploadKey("english", "T1", models.FileTypeAnswer))

	subjects.subjects["english"].IsDeleted = false
	require.NoError(t, svc.DeleteUpload(ctx, upload.ID))
	assert.Empty(t, repo.uploads)
}

func TestPromptServiceResolveSystemPrompt(t *testing.T) {
	svc, repo, subjects := newTestPromptService(t)
	ctx := context.Background()

	got, err := svc.ResolveSystemPrompt(ctx, "english", "T1", models.FileTypeProblem)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.CreateSystem(ctx, "dev-1", systemPromptReq("second", 2))
	require.NoError(t, err)
	_, err = svc.CreateSystem(ctx, "dev-1", systemPromptReq("first", 1))
	require.NoError(t, err)
	_, err = svc.CreateSystem(ctx, "dev-1", systemPromptReq("other-task", 0, "T2"))
	require.NoError(t, err)

	got, err = svc.ResolveSystemPrompt(ctx, "english", "T1", models.FileTypeProblem)
	require.NoError(t, err)
	assert.Equal(t, "first rules\n\nsecond rules", got)

	inactive := false
	_, err = svc.UpsertUpload(ctx, "dev-1", dto.UpsertPromptUploadRequest{SubjectID: "english", TaskID: "T1", FileType: "problem", PromptText: "upload", IsActive: &inactive})
	require.NoError(t, err)
	got, err = svc.ResolveSystemPrompt(ctx, "english", "T1", models.FileTypeProblem)
	require.NoError(t, err)
	assert.Equal(t, "first rules\n\nsecond rules", got)

	repo.uploads[uploadKey("english", "T1", models.FileTypeProblem)].IsActive = true
	got, err = svc.ResolveSystemPrompt(ctx, "english", "T1", models.FileTypeProblem)
	require.NoError(t, err)
	assert.Equal(t, "upload", got)

	subjects.subjects["english"].IsDeleted = true
	got, err = svc.ResolveSystemPrompt(ctx, "english", "T1", models.FileTypeProblem)
	require.NoError(t, err)
	assert.Empty(t, got)
}
