package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manuerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client-chosen idempotency key
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayHeader marks a response served from the idempotency cache
const ReplayHeader = "X-Idempotent-Replay"

// bodyCapturingWriter tees the response body so it can be stored for replay
type bodyCapturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCapturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first response recorded for a given
// key+endpoint+user combination. A replayed request performs no handler work
// at all, so retried writes cause zero additional ledger rows. Responses with
// 5xx statuses are not stored; the client's retry re-executes them.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		user := c.GetHeader("X-User-ID")
		cacheKey := strings.Join([]string{key, c.Request.Method, c.FullPath(), user}, "|")

		stored, err := store.Get(c.Request.Context(), cacheKey)
		if err != nil {
			log.Error("idempotency lookup failed, executing request",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err))
		}
		if stored != nil {
			c.Header(ReplayHeader, "true")
			c.Data(stored.StatusCode, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		writer := &bodyCapturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			return
		}

		resp := &shared.StoredResponse{
			StatusCode:  status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
			StoredAt:    time.Now(),
		}
		if _, err := store.Put(c.Request.Context(), cacheKey, resp, ttl); err != nil {
			log.Error("failed to store idempotent response",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err))
		}
	}
}
