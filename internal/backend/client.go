// Package backend предоставляет клиент REST API платформы WhatsApp-коммерции.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/mmeshcher/merchant-dashboard/internal/model"
)

const requestTimeout = 15 * time.Second

// TokenSource возвращает сохранённый токен доступа.
type TokenSource interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

type tokenKey struct{}

// WithToken прикрепляет токен к контексту; он имеет приоритет над TokenSource.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext возвращает токен, прикреплённый через WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	tokenKey   string
}

// envelope описывает общий формат ответа бэкенда.
type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// NewClient создаёт клиент бэкенда. Токен для заголовка Authorization
// читается из tokens по ключу key.
func NewClient(baseURL string, tokens TokenSource, key string) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = requestTimeout

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		tokens:     tokens,
		tokenKey:   key,
	}
}

// Login выполняет вход по email и паролю.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	var res model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &InvalidResponseError{Status: http.StatusOK, Err: errors.New("empty token")}
	}
	return &res, nil
}

// Register регистрирует нового мерчанта и возвращает токен, пользователя и профиль магазина.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error) {
	var res model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &InvalidResponseError{Status: http.StatusOK, Err: errors.New("empty token")}
	}
	return &res, nil
}

// GetCurrentUser возвращает пользователя, которому принадлежит токен.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.UserIdentity, error) {
	var user model.UserIdentity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout завершает сессию на стороне бэкенда.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// GetCurrentMerchant возвращает профиль магазина текущего пользователя.
func (c *Client) GetCurrentMerchant(ctx context.Context) (*model.MerchantProfile, error) {
	var merchant model.MerchantProfile
	if err := c.do(ctx, http.MethodGet, "/merchants/me", nil, &merchant); err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetOnboardingProgress возвращает флаги прохождения мастера настройки.
func (c *Client) GetOnboardingProgress(ctx context.Context) (*model.OnboardingProgress, error) {
	var progress model.OnboardingProgress
	if err := c.do(ctx, http.MethodGet, "/onboarding/progress", nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.baseURL == "" {
		return &NetworkError{Err: errors.New("backend client not configured")}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if !success {
				return statusError(resp.StatusCode, nil)
			}
			return &InvalidResponseError{Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
		}
	}

	if !success {
		return statusError(resp.StatusCode, env.Error)
	}

	if out == nil {
		return nil
	}

	if !env.OK {
		return &InvalidResponseError{Status: resp.StatusCode, Err: errors.New("envelope not ok")}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &InvalidResponseError{Status: resp.StatusCode, Err: errors.New("empty data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &InvalidResponseError{Status: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}

	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok := TokenFromContext(ctx); ok {
		return token, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	token, _, err := c.tokens.Get(ctx, c.tokenKey)
	return token, err
}

func statusError(status int, e *envelopeError) error {
	var code, message, requestID string
	if e != nil {
		code, message, requestID = e.Code, e.Message, e.RequestID
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{Status: status, Code: code, Message: message, RequestID: requestID}
	default:
		return &AuthenticationError{Status: status, Code: code, Message: message, RequestID: requestID}
	}
}
