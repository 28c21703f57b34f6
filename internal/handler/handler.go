// Package handler содержит HTTP-обработчики локального API панели мерчанта.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/merchant-dashboard/internal/backend"
	"github.com/mmeshcher/merchant-dashboard/internal/middleware"
	"github.com/mmeshcher/merchant-dashboard/internal/model"
	"github.com/mmeshcher/merchant-dashboard/internal/money"
	"github.com/mmeshcher/merchant-dashboard/internal/session"
	"github.com/mmeshcher/merchant-dashboard/internal/validation"
)

// Service определяет контракт сессии, используемой HTTP-обработчиками.
type Service interface {
	State() session.State
	Login(ctx context.Context, creds model.Credentials) (*model.UserIdentity, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.UserIdentity, error)
	Logout(ctx context.Context)
	RefreshUser(ctx context.Context) (*model.UserIdentity, error)
	RefreshMerchant(ctx context.Context) error
	RefreshOnboarding(ctx context.Context) error
	ClearError()
}

// Handler реализует HTTP-обработчики API панели мерчанта.
type Handler struct {
	service        Service
	logger         *zap.Logger
	currencySymbol string
	gate           *middleware.SessionGate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, currencySymbol string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		currencySymbol: currencySymbol,
		gate:           middleware.NewSessionGate(s),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	User *model.UserIdentity `json:"user"`
}

type sessionResponse struct {
	Phase                   string                    `json:"phase"`
	AuthReady               bool                      `json:"auth_ready"`
	HasCredential           bool                      `json:"has_credential"`
	User                    *model.UserIdentity       `json:"user"`
	Merchant                *model.MerchantProfile    `json:"merchant"`
	MerchantLoading         bool                      `json:"merchant_loading"`
	MerchantLoadAttempted   bool                      `json:"merchant_load_attempted"`
	Onboarding              *model.OnboardingProgress `json:"onboarding"`
	OnboardingLoading       bool                      `json:"onboarding_loading"`
	OnboardingLoadAttempted bool                      `json:"onboarding_load_attempted"`
	Error                   string                    `json:"error,omitempty"`
	Route                   session.Route             `json:"route"`
	NextStep                model.OnboardingStep      `json:"next_step,omitempty"`
}

func newSessionResponse(s session.State) sessionResponse {
	route, step := s.Route()
	return sessionResponse{
		Phase:                   s.Phase.String(),
		AuthReady:               s.AuthReady,
		HasCredential:           s.HasCredential,
		User:                    s.User,
		Merchant:                s.Merchant,
		MerchantLoading:         s.MerchantLoading,
		MerchantLoadAttempted:   s.MerchantLoadAttempted,
		Onboarding:              s.Onboarding,
		OnboardingLoading:       s.OnboardingLoading,
		OnboardingLoadAttempted: s.OnboardingLoadAttempted,
		Error:                   s.Error,
		Route:                   route,
		NextStep:                step,
	}
}

// Login выполняет вход мерчанта.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	if err := validation.ValidateCredentials(req.Email, req.Password); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, "login", err)
		return
	}

	h.writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Register регистрирует нового мерчанта.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	if err := validation.ValidateRegistration(req.Email, req.Password, req.BusinessName); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, "register", err)
		return
	}

	h.writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Logout завершает сессию. Ошибки бэкенда не влияют на ответ.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetSession возвращает снимок сессии и маршрут, который должен показать интерфейс.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newSessionResponse(h.service.State()))
}

// ClearError сбрасывает последнюю ошибку аутентификации.
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.service.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// RefreshUser повторно запрашивает текущего пользователя.
func (h *Handler) RefreshUser(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.RefreshUser(r.Context()); err != nil {
		switch {
		case errors.Is(err, session.ErrNotAuthenticated), backend.IsCredentialRejected(err):
			h.writeError(w, http.StatusUnauthorized, err.Error())
		default:
			h.logger.Error("refresh user error", zap.Error(err))
			h.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, newSessionResponse(h.service.State()))
}

// RefreshMerchant перезагружает профиль магазина.
func (h *Handler) RefreshMerchant(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, h.service.RefreshMerchant)
}

// RefreshOnboarding перезагружает прогресс онбординга.
func (h *Handler) RefreshOnboarding(w http.ResponseWriter, r *http.Request) {
	h.refresh(w, r, h.service.RefreshOnboarding)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, reload func(context.Context) error) {
	if err := reload(r.Context()); err != nil {
		h.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, newSessionResponse(h.service.State()))
}

type minorUnitsRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type minorUnitsResponse struct {
	MinorUnits int64 `json:"minor_units"`
}

// ToMinorUnits переводит введённую сумму в минимальные единицы валюты.
// Сумма принимается строкой ("1,500.50") или числом.
func (h *Handler) ToMinorUnits(w http.ResponseWriter, r *http.Request) {
	var req minorUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	var (
		minor int64
		err   error
	)

	var text string
	var number float64
	switch {
	case json.Unmarshal(req.Amount, &text) == nil:
		minor, err = money.ToMinorUnits(text)
	case json.Unmarshal(req.Amount, &number) == nil:
		minor, err = money.ToMinorUnitsFloat(number)
	default:
		err = money.ErrInvalidAmount
	}

	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, minorUnitsResponse{MinorUnits: minor})
}

type displayResponse struct {
	Display string  `json:"display"`
	Major   float64 `json:"major"`
}

// DisplayAmount форматирует сумму в минимальных единицах для показа.
// Отсутствующий параметр minor означает отсутствующее значение.
func (h *Handler) DisplayAmount(w http.ResponseWriter, r *http.Request) {
	var minor *int64

	if raw := r.URL.Query().Get("minor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "minor must be an integer")
			return
		}
		minor = &v
	}

	h.writeJSON(w, http.StatusOK, displayResponse{
		Display: money.ToMajorUnitsDisplay(minor, h.currencySymbol),
		Major:   money.ToMajorUnitsNumber(minor),
	})
}

func (h *Handler) writeAuthError(w http.ResponseWriter, op string, err error) {
	var (
		authErr       *backend.AuthenticationError
		validationErr *backend.ValidationError
	)

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &authErr):
		h.writeError(w, http.StatusUnauthorized, authErr.Error())
	default:
		h.logger.Error(op+" error", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
