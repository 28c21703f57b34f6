package session

import "github.com/mmeshcher/merchant-dashboard/internal/model"

// Route обозначает экран, который должна показать панель для текущего состояния сессии.
type Route string

const (
	RouteLoading    Route = "loading"
	RouteLogin      Route = "login"
	RouteOnboarding Route = "onboarding"
	RouteDashboard  Route = "dashboard"
)

// Route определяет экран по флагам готовности сессии. Для RouteOnboarding
// вторым значением возвращается первый незавершённый шаг мастера.
func (s State) Route() (Route, model.OnboardingStep) {
	if !s.AuthReady {
		return RouteLoading, ""
	}
	if s.User == nil {
		return RouteLogin, ""
	}
	if !s.MerchantLoadAttempted || !s.OnboardingLoadAttempted || s.MerchantLoading || s.OnboardingLoading {
		return RouteLoading, ""
	}
	if s.Onboarding == nil {
		return RouteDashboard, ""
	}
	if step, pending := s.Onboarding.NextStep(); pending {
		return RouteOnboarding, step
	}
	return RouteDashboard, ""
}
