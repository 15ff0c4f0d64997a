// Package response writes the JSON envelope shared by every endpoint:
// {"data": ..., "pagination": ..., "meta": ...} on success and
// {"error": {...}} on failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON writes data with the given status. Only the first meta map is used.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	env := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && len(meta[0]) > 0 {
		env.Meta = meta[0]
	}
	write(c, status, env)
}

func OK(c *gin.Context, data interface{}) { JSON(c, http.StatusOK, data, nil) }

func Created(c *gin.Context, data interface{}) { JSON(c, http.StatusCreated, data, nil) }

// Accepted acknowledges work that finishes asynchronously.
func Accepted(c *gin.Context, data interface{}) { JSON(c, http.StatusAccepted, data, nil) }

// Paginated writes one page of a list.
func Paginated(c *gin.Context, data interface{}, page *models.Pagination) {
	JSON(c, http.StatusOK, data, page)
}

// Error writes err as an error envelope. Causes of 5xx errors are recorded on
// the gin context so the request logger can report them.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError && appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	write(c, appErr.Status, Envelope{Error: appErr})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func write(c *gin.Context, status int, env Envelope) {
	h := c.Writer.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	c.JSON(status, env)
}
