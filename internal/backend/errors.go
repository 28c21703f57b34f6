package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError возвращается, если запрос к бэкенду не удалось выполнить.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: unable to reach the server"
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// InvalidResponseError возвращается, если ответ бэкенда не удалось разобрать.
type InvalidResponseError struct {
	Status int
	Err    error
}

func (e *InvalidResponseError) Error() string {
	return "invalid response from server"
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// AuthenticationError описывает отказ бэкенда с HTTP-статусом и кодом ошибки из конверта.
type AuthenticationError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *AuthenticationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Unauthorized сообщает, что бэкенд отверг учётные данные (401).
func (e *AuthenticationError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Rejected сообщает, что бэкенд отверг или не признал учётные данные (401 или 403).
func (e *AuthenticationError) Rejected() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// ValidationError описывает ошибку валидации запроса (400, 422).
type ValidationError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "request validation failed"
}

// IsUnauthorized сообщает, является ли err ответом 401 от бэкенда.
func IsUnauthorized(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr) && authErr.Unauthorized()
}

// IsCredentialRejected сообщает, отверг ли бэкенд сохранённые учётные данные.
func IsCredentialRejected(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr) && authErr.Rejected()
}
