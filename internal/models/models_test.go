package models

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRoleSetIncludesPrimary(t *testing.T) {
	u := User{PrimaryRole: RoleDeveloper, Roles: pq.StringArray{"WORKER"}}
	assert.Equal(t, []Role{RoleDeveloper, RoleWorker}, u.RoleSet())
	assert.False(t, u.HasRole(RoleDeveloper))

	u.Roles = pq.StringArray{"DEVELOPER", "WORKER"}
	assert.Equal(t, []Role{RoleDeveloper, RoleWorker}, u.RoleSet())
}

func TestParseExamType(t *testing.T) {
	et, ok := ParseExamType("")
	assert.True(t, ok)
	assert.Equal(t, ExamTypeMock, et)

	et, ok = ParseExamType("past")
	assert.True(t, ok)
	assert.Equal(t, ExamTypePast, et)

	_, ok = ParseExamType("final")
	assert.False(t, ok)
}

func TestTaskFilesScan(t *testing.T) {
	var files TaskFiles
	require.NoError(t, files.Scan([]byte(`[{"fileType":"problem","tasks":[{"taskId":"t1","remark":"","description":"check units"}]}]`)))
	require.Len(t, files, 1)
	assert.Equal(t, []string{"t1"}, files.TaskIDs())

	require.NoError(t, files.Scan(nil))
	assert.Empty(t, files)
	assert.Error(t, files.Scan(42))
}

func TestEmptyTaskFiles(t *testing.T) {
	files := EmptyTaskFiles()
	require.Len(t, files, 4)
	for i, ft := range AllFileTypes {
		assert.Equal(t, ft, files[i].FileType)
		assert.NotNil(t, files[i].Tasks)
	}
}

func TestSystemPromptAppliesTo(t *testing.T) {
	global := SystemPrompt{}
	assert.True(t, global.AppliesTo("t9"))

	scoped := SystemPrompt{TaskIDs: pq.StringArray{"t1", "t2"}}
	assert.True(t, scoped.AppliesTo("t2"))
	assert.False(t, scoped.AppliesTo("t3"))
	assert.True(t, scoped.AppliesTo(""))
}
