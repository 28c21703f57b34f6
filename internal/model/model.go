// Package model содержит доменные сущности панели мерчанта.
package model

import "time"

// UserIdentity описывает аутентифицированного пользователя панели.
type UserIdentity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name,omitempty"`
	Role       string `json:"role,omitempty"`
	MerchantID string `json:"merchant_id,omitempty"`
}

// MerchantProfile описывает профиль магазина мерчанта.
type MerchantProfile struct {
	ID                string    `json:"id"`
	BusinessName      string    `json:"business_name"`
	Slug              string    `json:"slug,omitempty"`
	Email             string    `json:"email,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Currency          string    `json:"currency,omitempty"`
	WhatsAppConnected bool      `json:"whatsapp_connected"`
	CreatedAt         time.Time `json:"created_at,omitzero"`
}

// OnboardingStep обозначает шаг мастера первичной настройки магазина.
type OnboardingStep string

const (
	StepBrandBasics   OnboardingStep = "brand_basics"
	StepMetaCatalog   OnboardingStep = "meta_catalog"
	StepProducts      OnboardingStep = "products"
	StepDeliveryRates OnboardingStep = "delivery_rates"
	StepPayments      OnboardingStep = "payments"
)

// OnboardingSteps перечисляет шаги в порядке их прохождения.
var OnboardingSteps = []OnboardingStep{
	StepBrandBasics,
	StepMetaCatalog,
	StepProducts,
	StepDeliveryRates,
	StepPayments,
}

// OnboardingProgress содержит флаги завершённости шагов мастера.
type OnboardingProgress struct {
	BrandBasics   bool `json:"brand_basics"`
	MetaCatalog   bool `json:"meta_catalog"`
	Products      bool `json:"products"`
	DeliveryRates bool `json:"delivery_rates"`
	Payments      bool `json:"payments"`
}

// Done сообщает, завершён ли указанный шаг.
func (p OnboardingProgress) Done(step OnboardingStep) bool {
	switch step {
	case StepBrandBasics:
		return p.BrandBasics
	case StepMetaCatalog:
		return p.MetaCatalog
	case StepProducts:
		return p.Products
	case StepDeliveryRates:
		return p.DeliveryRates
	case StepPayments:
		return p.Payments
	default:
		return false
	}
}

// NextStep возвращает первый незавершённый шаг либо false, если все шаги пройдены.
func (p OnboardingProgress) NextStep() (OnboardingStep, bool) {
	for _, step := range OnboardingSteps {
		if !p.Done(step) {
			return step, true
		}
	}
	return "", false
}

// Completed сообщает, пройдены ли все шаги мастера.
func (p OnboardingProgress) Completed() bool {
	_, pending := p.NextStep()
	return !pending
}

// Credentials содержит данные для входа.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest содержит данные регистрации нового мерчанта.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name,omitempty"`
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone,omitempty"`
}

// AuthResult содержит ответ бэкенда на вход или регистрацию.
type AuthResult struct {
	Token    string           `json:"token"`
	User     UserIdentity     `json:"user"`
	Merchant *MerchantProfile `json:"merchant,omitempty"`
}
