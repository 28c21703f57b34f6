package middleware

import (
	"net/http"

	"github.com/mmeshcher/merchant-dashboard/internal/session"
)

// SessionReader отдаёт снимок состояния сессии.
type SessionReader interface {
	State() session.State
}

// SessionGate пропускает запросы только при активной сессии мерчанта.
type SessionGate struct {
	sessions SessionReader
}

// NewSessionGate создаёт middleware проверки сессии.
func NewSessionGate(sessions SessionReader) *SessionGate {
	return &SessionGate{sessions: sessions}
}

// Middleware отвечает 503, пока первичная проверка токена не завершена,
// и 401, если пользователь не вошёл.
func (g *SessionGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := g.sessions.State()

		if !state.AuthReady {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		if state.User == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
