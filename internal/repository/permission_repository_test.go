package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

var permissionRowColumns = []string{"user_id", "login_id", "subject_id", "can_access", "can_edit", "can_delete", "updated_at"}

func TestPermissionRepositoryGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery(`WHERE p.user_id = \$1 AND p.subject_id = \$2`).
		WithArgs("u-1", "english").
		WillReturnRows(sqlmock.NewRows(permissionRowColumns).AddRow("u-1", "alice", "english", false, false, false, time.Now()))

	perm, err := repo.Get(context.Background(), "u-1", "english")
	require.NoError(t, err)
	assert.False(t, perm.CanAccess)
	assert.Equal(t, "alice", perm.LoginID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionRepositoryListByLoginID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery(`WHERE u.login_id = \$1 ORDER BY u.login_id, p.subject_id`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(permissionRowColumns).
			AddRow("u-1", "alice", "english", true, true, false, time.Now()).
			AddRow("u-1", "alice", "math", false, false, false, time.Now()))

	perms, err := repo.List(context.Background(), models.PermissionFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, perms, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectExec(`ON CONFLICT \(user_id, subject_id\)`).
		WithArgs("u-1", "english", true, false, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.AccessPermission{UserID: "u-1", SubjectID: "english", CanAccess: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
