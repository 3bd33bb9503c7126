package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reportLimitWindow = 24 * time.Hour

// ReportCounter is the slice of redis commands the limiter uses.
// *redis.Client satisfies it.
type ReportCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimiter caps the number of reports a user may submit per day. The
// counter lives in redis under report-limit:<userID> and expires with the
// window, so the limit resets a day after the user's first report. When
// rdb is nil the limiter is disabled.
func RateLimiter(rdb ReportCounter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			caller, ok := CallerFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("report-limit:%s", caller.ID.Hex())
			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				// redis being down should not block reporting
				zap.S().Warnw("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, reportLimitWindow)
			}

			if count > int64(limit) {
				ttl, _ := rdb.TTL(r.Context(), key).Result()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error": "daily report limit reached", "retry_after": %d}`, int(ttl.Seconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
