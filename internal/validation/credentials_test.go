package validation

import (
	"errors"
	"testing"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "valid", email: "ada@shop.ng", password: "secret"},
		{name: "empty email", email: "  ", password: "secret", want: ErrEmailRequired},
		{name: "email without at", email: "ada.shop.ng", password: "secret", want: ErrEmailRequired},
		{name: "empty password", email: "ada@shop.ng", password: "", want: ErrPasswordRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ValidateCredentials(%q) = %v, want %v", tt.email, err, tt.want)
			}
		})
	}
}

func TestValidateRegistration_RequiresBusinessName(t *testing.T) {
	if err := ValidateRegistration("ada@shop.ng", "secret", " "); !errors.Is(err, ErrBusinessNameRequired) {
		t.Fatalf("expected ErrBusinessNameRequired, got %v", err)
	}
	if err := ValidateRegistration("ada@shop.ng", "secret", "Ada Foods"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
