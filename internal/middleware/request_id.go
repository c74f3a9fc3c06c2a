package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cruiselens/payments-backend/internal/logger"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

type reqIDKey struct{}

func RequestIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(reqIDKey{}).(string)
	return s
}

// RequestID tags every request with an id, reusing a sane inbound one, and
// puts a logger carrying it into the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), reqIDKey{}, id)
		ctx = logger.WithContext(ctx, slog.Default().With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
