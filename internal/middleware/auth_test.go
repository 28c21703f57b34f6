package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/merchant-dashboard/internal/model"
	"github.com/mmeshcher/merchant-dashboard/internal/session"
)

type stubSessions struct {
	state session.State
}

func (s *stubSessions) State() session.State {
	return s.state
}

func TestSessionGate(t *testing.T) {
	tests := []struct {
		name       string
		state      session.State
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "auth not ready",
			state:      session.State{},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "anonymous",
			state:      session.State{AuthReady: true},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "authenticated",
			state:      session.State{AuthReady: true, User: &model.UserIdentity{ID: "u1"}},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewSessionGate(&stubSessions{state: tt.state})

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)

			gate.Middleware(next).ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if nextCalled != tt.wantNext {
				t.Fatalf("next called = %v, want %v", nextCalled, tt.wantNext)
			}
			if tt.wantStatus == http.StatusServiceUnavailable && res.Header.Get("Retry-After") != "1" {
				t.Fatalf("Retry-After header missing")
			}
		})
	}
}
