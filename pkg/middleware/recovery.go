package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery converts a handler panic into a 500 response using the same
// {"error": {code, message}} envelope the handlers produce, so clients never
// see a bare body. Mount it first so it also covers panics in later
// middleware.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	type errorBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	type envelope struct {
		Error errorBody `json:"error"`
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				body := envelope{Error: errorBody{
					Code:    "INTERNAL_ERROR",
					Message: "an internal error occurred",
				}}
				if err := json.NewEncoder(w).Encode(body); err != nil {
					l.Error("failed to encode panic response", slog.String("error", err.Error()))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
