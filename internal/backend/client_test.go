package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/merchant-dashboard/internal/model"
)

type stubTokens struct {
	token string
	err   error
}

func (s *stubTokens) Get(ctx context.Context, key string) (string, bool, error) {
	return s.token, s.token != "", s.err
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLogin_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/auth/login" {
			t.Fatalf("path = %s, want /auth/login", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatalf("X-Request-ID header missing")
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Fatalf("unexpected Authorization header %q", auth)
		}

		var creds model.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if creds.Email != "ada@shop.ng" || creds.Password != "secret" {
			t.Fatalf("unexpected credentials: %+v", creds)
		}

		writeJSON(t, w, http.StatusOK, map[string]any{
			"ok": true,
			"data": map[string]any{
				"token": "tok-1",
				"user":  map[string]any{"id": "u1", "email": "ada@shop.ng"},
			},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, &stubTokens{}, "auth_token")

	res, err := client.Login(testContext(t), model.Credentials{Email: "ada@shop.ng", Password: "secret"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if res.Token != "tok-1" || res.User.ID != "u1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGetCurrentUser_AttachesBearerFromStore(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer stored" {
			t.Fatalf("Authorization = %q, want %q", got, "Bearer stored")
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"ok":   true,
			"data": map[string]any{"id": "u1", "email": "ada@shop.ng"},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, &stubTokens{token: "stored"}, "auth_token")

	user, err := client.GetCurrentUser(testContext(t))
	if err != nil {
		t.Fatalf("GetCurrentUser error: %v", err)
	}
	if user.Email != "ada@shop.ng" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLogout_ContextTokenOverridesStore(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer from-context" {
			t.Fatalf("Authorization = %q, want %q", got, "Bearer from-context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, &stubTokens{token: "stored"}, "auth_token")

	if err := client.Logout(WithToken(testContext(t), "from-context")); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
}

func TestGetCurrentUser_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":       "TOKEN_EXPIRED",
				"message":    "Session expired",
				"request_id": "req-9",
			},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, &stubTokens{token: "old"}, "auth_token")

	_, err := client.GetCurrentUser(testContext(t))

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %T: %v", err, err)
	}
	if authErr.Status != http.StatusUnauthorized || authErr.Code != "TOKEN_EXPIRED" || authErr.RequestID != "req-9" {
		t.Fatalf("unexpected error fields: %+v", authErr)
	}
	if err.Error() != "Session expired" {
		t.Fatalf("message = %q, want %q", err.Error(), "Session expired")
	}
	if !IsUnauthorized(err) || !IsCredentialRejected(err) {
		t.Fatalf("401 must be reported as unauthorized and rejected")
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
	}{
		{name: "validation 400", status: http.StatusBadRequest, body: `{"ok":false,"error":{"code":"BAD","message":"bad"}}`, wantType: "validation"},
		{name: "validation 422", status: http.StatusUnprocessableEntity, body: `{"ok":false,"error":{"message":"email taken"}}`, wantType: "validation"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"ok":false}`, wantType: "auth"},
		{name: "server error with html body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantType: "auth"},
		{name: "ok status with garbage", status: http.StatusOK, body: `not json`, wantType: "invalid"},
		{name: "ok status without data", status: http.StatusOK, body: `{"ok":true}`, wantType: "invalid"},
		{name: "ok status with ok false", status: http.StatusOK, body: `{"ok":false,"data":{"id":"m1"}}`, wantType: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := NewClient(ts.URL, nil, "auth_token")
			_, err := client.GetCurrentMerchant(testContext(t))

			var (
				validationErr *ValidationError
				authErr       *AuthenticationError
				invalidErr    *InvalidResponseError
			)
			switch tt.wantType {
			case "validation":
				if !errors.As(err, &validationErr) || validationErr.Status != tt.status {
					t.Fatalf("expected ValidationError(%d), got %T: %v", tt.status, err, err)
				}
			case "auth":
				if !errors.As(err, &authErr) || authErr.Status != tt.status {
					t.Fatalf("expected AuthenticationError(%d), got %T: %v", tt.status, err, err)
				}
			case "invalid":
				if !errors.As(err, &invalidErr) {
					t.Fatalf("expected InvalidResponseError, got %T: %v", err, err)
				}
			}
		})
	}
}

func TestGetOnboardingProgress_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/onboarding/progress" {
			t.Fatalf("path = %s, want /onboarding/progress", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ok":true,"data":{"brand_basics":true,"meta_catalog":false,"products":true}}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, nil, "auth_token")

	progress, err := client.GetOnboardingProgress(testContext(t))
	if err != nil {
		t.Fatalf("GetOnboardingProgress error: %v", err)
	}
	if !progress.BrandBasics || progress.MetaCatalog || !progress.Products {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(url, nil, "auth_token")

	_, err := client.GetCurrentUser(testContext(t))

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if IsCredentialRejected(err) {
		t.Fatalf("network error must not be treated as rejected credential")
	}
}

func TestNotConfigured(t *testing.T) {
	var client *Client

	_, err := client.GetCurrentUser(context.Background())

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError for nil client, got %T: %v", err, err)
	}
}

func TestNewClient_AddsScheme(t *testing.T) {
	client := NewClient("api.example.com/v1/", nil, "auth_token")
	if client.baseURL != "http://api.example.com/v1" {
		t.Fatalf("baseURL = %q", client.baseURL)
	}
}
