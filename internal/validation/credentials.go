package validation

import (
	"errors"
	"strings"
)

var (
	// ErrEmailRequired возвращается, если email пуст или не похож на адрес.
	ErrEmailRequired = errors.New("enter a valid email address")
	// ErrPasswordRequired возвращается при пустом пароле.
	ErrPasswordRequired = errors.New("password is required")
	// ErrBusinessNameRequired возвращается при регистрации без названия бизнеса.
	ErrBusinessNameRequired = errors.New("business name is required")
)

// ValidateCredentials проверяет пару email/пароль перед отправкой на бэкенд.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// ValidateRegistration проверяет данные регистрации нового мерчанта.
func ValidateRegistration(email, password, businessName string) error {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if strings.TrimSpace(businessName) == "" {
		return ErrBusinessNameRequired
	}
	return nil
}
