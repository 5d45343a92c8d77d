package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ckocyigit/duoledger/internal/metrics"
)

// Metrics records request latency per method and normalized path. ID path
// segments collapse to ":id" to keep label cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		metrics.HTTPDuration.
			WithLabelValues(r.Method, normalizePath(r.URL.Path)).
			Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, err := uuid.Parse(seg); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
