package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	replaced  map[string][]models.Role
	auditLogs []*models.AuditLog
	listTotal int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*models.User{}, replaced: map[string][]models.Role{}}
	for _, u := range users {
		repo.users[u.LoginID] = u
	}
	return repo
}

func (f *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, f.listTotal, nil
}

func (f *fakeUserRepo) FindByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	if u, ok := f.users[loginID]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) ReplaceRoles(ctx context.Context, userID string, primary models.Role, roles []models.Role) error {
	f.replaced[userID] = roles
	return nil
}

func (f *fakeUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

type fakeRevoker struct {
	revoked []string
}

func (f *fakeRevoker) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	f.revoked = append(f.revoked, userID)
	return 1, nil
}

func adminClaims(roles ...models.Role) *models.SessionClaims {
	return &models.SessionClaims{UserID: "actor", Role: roles[0], Roles: roles}
}

func TestUserServiceUpdateRoleAddsPrimaryAndRevokes(t *testing.T) {
	repo := newFakeUserRepo(&models.User{ID: "u-1", LoginID: "alice", PrimaryRole: models.RoleWorker, Roles: []string{"WORKER"}})
	revoker := &fakeRevoker{}
	svc := NewUserService(repo, revoker, nil, nil)

	user, err := svc.UpdateRole(context.Background(), adminClaims(models.RoleAdmin), dto.UpdateUserRoleRequest{
		UserID: "alice", Role: "developer", Roles: []string{"WORKER"},
	}, dto.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDeveloper, user.PrimaryRole)
	assert.Equal(t, []models.Role{models.RoleDeveloper, models.RoleWorker}, repo.replaced["u-1"])
	assert.Equal(t, []string{"u-1"}, revoker.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRoleUpdate, repo.auditLogs[0].Action)
}

func TestUserServiceSuperAdminGuard(t *testing.T) {
	repo := newFakeUserRepo(
		&models.User{ID: "u-1", LoginID: "alice", PrimaryRole: models.RoleWorker, Roles: []string{"WORKER"}},
		&models.User{ID: "u-2", LoginID: "root", PrimaryRole: models.RoleSuperAdmin, Roles: []string{"SUPER_ADMIN"}},
	)
	svc := NewUserService(repo, nil, nil, nil)

	_, err := svc.UpdateRole(context.Background(), adminClaims(models.RoleAdmin), dto.UpdateUserRoleRequest{UserID: "alice", Role: "SUPER_ADMIN"}, dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.UpdateRole(context.Background(), adminClaims(models.RoleAdmin), dto.UpdateUserRoleRequest{UserID: "root", Role: "WORKER"}, dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.UpdateRole(context.Background(), adminClaims(models.RoleSuperAdmin), dto.UpdateUserRoleRequest{UserID: "alice", Role: "SUPER_ADMIN"}, dto.RequestMeta{})
	assert.NoError(t, err)
}

func TestUserServiceUpdateRoleErrors(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), nil, nil, nil)

	_, err := svc.UpdateRole(context.Background(), adminClaims(models.RoleAdmin), dto.UpdateUserRoleRequest{UserID: "ghost", Role: "WORKER"}, dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.UpdateRole(context.Background(), adminClaims(models.RoleAdmin), dto.UpdateUserRoleRequest{UserID: "ghost", Role: "OWNER"}, dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateRole(context.Background(), adminClaims(models.RoleAdmin), dto.UpdateUserRoleRequest{Role: "WORKER"}, dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceListPagination(t *testing.T) {
	repo := newFakeUserRepo(&models.User{ID: "u-1", LoginID: "alice", CreatedAt: time.Now()})
	repo.listTotal = 41
	svc := NewUserService(repo, nil, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)

	bad := models.Role("OWNER")
	_, _, err = svc.List(context.Background(), models.UserFilter{Role: &bad})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
