package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridetrack/internal/logging"
	"ridetrack/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	replayHeader      = "Idempotent-Replay"
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response of a mutation retried
// with the same Idempotency-Key. Keys are scoped to the caller and route.
// Store failures never block the request.
func IdempotencyMiddleware(store redis.ResponseStoreInterface, logger *slog.Logger) gin.HandlerFunc {
	logger = logging.OrDefault(logger)

	return func(c *gin.Context) {
		// Only apply to mutating methods.
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := c.GetHeader("X-User-ID") + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key

		data, err := store.GetResponse(ctx, cacheKey)
		if err != nil {
			logger.WarnContext(ctx, "idempotency lookup failed", "error", err)
			c.Next()
			return
		}

		if data != nil {
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				c.Header(replayHeader, "true")
				if len(cached.Body) == 0 {
					c.Status(cached.StatusCode)
				} else {
					c.Data(cached.StatusCode, cached.ContentType, cached.Body)
				}
				c.Abort()
				return
			}
			logger.WarnContext(ctx, "discarding unreadable idempotent response", "key", key)
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			return
		}
		payload, err := json.Marshal(cachedResponse{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := store.SetResponse(ctx, cacheKey, payload, idempotencyTTL); err != nil {
			logger.WarnContext(ctx, "idempotency store failed", "error", err)
		}
	}
}
