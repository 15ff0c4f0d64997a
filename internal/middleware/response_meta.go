package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_start"
	cacheHitKey      = "cache_hit"
)

// ResponseMeta carries per-response metadata rendered in the envelope.
type ResponseMeta map[string]interface{}

// WithResponseMeta initialises response metadata storage on the request
// context. Handlers read it back through ExtractMeta when they respond, so the
// timing covers everything up to that point.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, ResponseMeta{})
		c.Set(responseStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata for the current response, stamped with the
// request id and elapsed time. It returns nil when WithResponseMeta is absent.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(ResponseMeta)
	if !ok {
		return nil
	}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	if start, ok := c.Get(responseStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) ResponseMeta {
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(ResponseMeta); ok {
			return meta
		}
	}
	meta := ResponseMeta{}
	c.Set(responseMetaKey, meta)
	return meta
}
