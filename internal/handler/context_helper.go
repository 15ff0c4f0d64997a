package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/middleware"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 and returns nil when the request has no session.
func requireClaims(c *gin.Context) *models.SessionClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

func requestMeta(c *gin.Context) dto.RequestMeta {
	return dto.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func ok(c *gin.Context, data interface{}) {
	response.JSON(c, http.StatusOK, data, nil, middleware.ExtractMeta(c))
}

// pathID returns the :id path parameter when it is a UUID and writes 400
// otherwise. Ids are validated here so malformed values never reach postgres.
func pathID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, appErrors.Validation("id", "id must be a valid UUID"))
		return "", false
	}
	return id.String(), true
}
