// Package csrf rejects cross-site state-changing requests that ride on the
// session cookie.
package csrf

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

var errCSRF = appErrors.New("CSRF_REJECTED", http.StatusForbidden, "cross-site request rejected")

// New validates Origin, falling back to Referer, for unsafe methods. Requests
// carrying a bearer token are not cookie authenticated and pass through. An
// empty allow list disables the check.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[normalize(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 || isSafeMethod(c.Request.Method) || hasBearer(c) {
			c.Next()
			return
		}

		source := c.GetHeader("Origin")
		if source == "" {
			source = originOf(c.GetHeader("Referer"))
		}
		if _, ok := allowed[normalize(source)]; !ok || source == "" {
			response.Error(c, errCSRF)
			c.Abort()
			return
		}
		c.Next()
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func hasBearer(c *gin.Context) bool {
	return strings.HasPrefix(strings.ToLower(c.GetHeader("Authorization")), "bearer ")
}

func normalize(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

func originOf(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
