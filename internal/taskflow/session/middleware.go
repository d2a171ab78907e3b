package session

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// Middleware loads the session into the request context and commits it just
// before the response headers go out, or after the handler if it wrote
// nothing.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)
		r = r.WithContext(WithSession(r.Context(), s))

		cw := &commitWriter{ResponseWriter: w, commit: func() {
			if err := m.Commit(r.Context(), w, s); err != nil {
				slogx.FromContext(r.Context()).Error("failed to save session", slog.Any("error", err))
			}
		}}
		next.ServeHTTP(cw, r)
		cw.flushCommit()
	})
}

type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (cw *commitWriter) flushCommit() {
	if cw.committed {
		return
	}
	cw.committed = true
	cw.commit()
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.flushCommit()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	cw.flushCommit()
	return cw.ResponseWriter.Write(b)
}

func (cw *commitWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }
