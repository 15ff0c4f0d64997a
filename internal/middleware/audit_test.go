package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &auditStub{}
	r := gin.New()
	r.PUT("/tasks/:subjectId", Session(testSessions, ""), Audit(recorder, nil, "TASK_UPDATE", "task_definition", "subjectId"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodPut, "/tasks/english", bearer("dev-token"))
	serve(r, http.MethodPut, "/tasks/english?fail=1", bearer("dev-token"))

	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, "TASK_UPDATE", entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-3", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "english", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), `"status":200`)
}
