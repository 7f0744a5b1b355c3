package httptransport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/platform/observability"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey      = "request_id"
	maxRequestIDBytes = 64
)

// RequestID returns the id assigned to the request, or "" outside the router.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// validRequestID accepts short printable ASCII ids without spaces so a
// client-supplied value can be echoed into headers and logs verbatim.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// accessLogMiddleware logs one line per request. Server errors log at error
// level, client errors at warn, and health polls only at debug.
func accessLogMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := fmt.Sprintf("%s %s -> %d (%s) id=%s",
			c.Request.Method, c.Request.URL.Path, status, time.Since(start), RequestID(c))

		switch {
		case status >= http.StatusInternalServerError:
			if last := c.Errors.Last(); last != nil {
				line += " err=" + last.Error()
			}
			logger.ErrorTag("HTTP", "%s", line)
		case status >= http.StatusBadRequest:
			logger.WarnTag("HTTP", "%s", line)
		case strings.HasSuffix(c.Request.URL.Path, "/health"):
			logger.DebugTag("HTTP", "%s", line)
		default:
			logger.InfoTag("HTTP", "%s", line)
		}
	}
}

func spanMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, end := observability.StartSpan(c.Request.Context(), "http", c.Request.Method+" "+route)
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		var spanErr error
		if last := c.Errors.Last(); last != nil {
			spanErr = last.Err
		} else if status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		end(spanErr)

		observability.RecordMetric(ctx, "http.requests", 1, map[string]string{
			"route":  route,
			"status": strconv.Itoa(status/100) + "xx",
		})
	}
}
