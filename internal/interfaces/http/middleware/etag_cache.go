package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bodyCacheWriter is a gin.ResponseWriter that buffers the response body so the
// ETag can be computed before anything is sent.
// bodyCacheWriter 缓冲响应正文以便计算 ETag。
type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCacheWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bodyCacheWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ETagCache returns a Gin middleware that implements ETag-based HTTP caching for GET
// responses. The version list only changes when a version is registered, so pollers
// mostly get 304 Not Modified. Clients must revalidate on every request.
// ETagCache 为 GET 响应实现基于 ETag 的缓存。
func ETagCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		bcw := &bodyCacheWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = bcw
		c.Next()
		c.Writer = bcw.ResponseWriter

		responseBody := bcw.body.Bytes()
		if c.Writer.Status() == http.StatusOK && len(responseBody) > 0 {
			etag := fmt.Sprintf(`"%x"`, sha256.Sum256(responseBody))
			c.Header("ETag", etag)
			c.Header("Cache-Control", "no-cache")
			if match := c.GetHeader("If-None-Match"); match == etag {
				c.Status(http.StatusNotModified)
				c.Writer.WriteHeaderNow()
				return
			}
		}

		_, _ = c.Writer.Write(responseBody)
	}
}
