// Package session управляет жизненным циклом сессии мерчанта: восстановлением
// сохранённого токена, входом, регистрацией, выходом и фоновой загрузкой
// профиля магазина и прогресса онбординга.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/merchant-dashboard/internal/backend"
	"github.com/mmeshcher/merchant-dashboard/internal/model"
)

// CredentialKey задаёт ключ, под которым токен хранится в CredentialStore.
const CredentialKey = "auth_token"

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// ErrNotAuthenticated возвращается операциями, требующими активной сессии.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthTransport описывает обращения к бэкенду, используемые сессией.
type AuthTransport interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error)
	GetCurrentUser(ctx context.Context) (*model.UserIdentity, error)
	Logout(ctx context.Context) error
	GetCurrentMerchant(ctx context.Context) (*model.MerchantProfile, error)
	GetOnboardingProgress(ctx context.Context) (*model.OnboardingProgress, error)
}

// CredentialStore описывает долговременное хранилище ключ-значение. Пишет в него только сессия.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Phase обозначает состояние автомата сессии.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseAnonymous
	PhaseAuthenticating
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// State содержит снимок состояния сессии. Изменение снимка не влияет на сессию.
type State struct {
	Phase         Phase
	HasCredential bool
	User          *model.UserIdentity
	AuthReady     bool

	Merchant              *model.MerchantProfile
	MerchantLoading       bool
	MerchantLoadAttempted bool

	Onboarding              *model.OnboardingProgress
	OnboardingLoading       bool
	OnboardingLoadAttempted bool

	Error string
}

// Option настраивает Bootstrap.
type Option func(*Bootstrap)

// WithRetryPolicy задаёт число повторов и базовую задержку загрузчиков.
// Некорректные значения игнорируются.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) Option {
	return func(b *Bootstrap) {
		if maxRetries < 0 || baseDelay <= 0 {
			return
		}
		b.newBackoff = exponentialBackoff(maxRetries, baseDelay)
	}
}

// WithBackoff подменяет фабрику расписаний повторов загрузчиков.
func WithBackoff(newBackoff func() retry.Backoff) Option {
	return func(b *Bootstrap) {
		if newBackoff != nil {
			b.newBackoff = newBackoff
		}
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(b *Bootstrap) {
		if now != nil {
			b.now = now
		}
	}
}

// Bootstrap владеет состоянием сессии; все изменения проходят через его методы.
type Bootstrap struct {
	transport  AuthTransport
	store      CredentialStore
	logger     *zap.Logger
	newBackoff func() retry.Backoff
	now        func() time.Time

	mu          sync.Mutex
	phase       Phase
	initStarted bool
	credential  string
	user        *model.UserIdentity
	authReady   bool
	errMsg      string
	// epoch растёт при каждом выходе и входе и отсекает устаревшие фоновые загрузки.
	epoch uint64

	merchant   *loader[model.MerchantProfile]
	onboarding *loader[model.OnboardingProgress]

	wg sync.WaitGroup
}

// New создаёт сессию в состоянии PhaseInitializing.
func New(transport AuthTransport, store CredentialStore, logger *zap.Logger, opts ...Option) *Bootstrap {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bootstrap{
		transport:  transport,
		store:      store,
		logger:     logger,
		newBackoff: exponentialBackoff(defaultMaxRetries, defaultBaseDelay),
		now:        time.Now,
		phase:      PhaseUninitialized,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.merchant = newLoader("merchant", transport.GetCurrentMerchant, b.newBackoff, logger)
	b.onboarding = newLoader("onboarding_progress", transport.GetOnboardingProgress, b.newBackoff, logger)

	b.phase = PhaseInitializing
	return b
}

// Initialize восстанавливает сохранённый токен и проверяет его на бэкенде.
// После возврата AuthReady всегда true. При успешной проверке профиль магазина
// и прогресс онбординга загружаются в фоне; ctx должен жить столько же, сколько приложение.
// Повторные вызовы ничего не делают.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	b.mu.Lock()
	if b.initStarted {
		b.mu.Unlock()
		return nil
	}
	b.initStarted = true
	generation := b.epoch
	b.mu.Unlock()

	token, ok, err := b.store.Get(ctx, CredentialKey)
	if err != nil {
		b.finishAnonymous(generation)
		return fmt.Errorf("read credential: %w", err)
	}

	if !ok || token == "" {
		if b.finishAnonymous(generation) && ok {
			b.removeStoredCredential(ctx)
		}
		return nil
	}

	if credentialExpired(token, b.now()) {
		b.logger.Info("stored credential expired")
		if b.finishAnonymous(generation) {
			b.removeStoredCredential(ctx)
		}
		return nil
	}

	user, err := b.transport.GetCurrentUser(backend.WithToken(ctx, token))
	if err != nil {
		if backend.IsCredentialRejected(err) {
			b.logger.Info("stored credential rejected", zap.Error(err))
			if b.finishAnonymous(generation) {
				b.removeStoredCredential(ctx)
			}
			return nil
		}
		b.logger.Warn("credential check failed, keeping stored credential", zap.Error(err))
		b.finishAnonymous(generation)
		return nil
	}

	b.mu.Lock()
	if b.epoch != generation {
		// сессию уже сменил вход или выход
		b.authReady = true
		b.mu.Unlock()
		return nil
	}
	b.credential = token
	b.user = user
	b.authReady = true
	b.phase = PhaseAuthenticated
	b.mu.Unlock()

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.merchant.load(ctx, generation)
	}()
	go func() {
		defer b.wg.Done()
		b.onboarding.load(ctx, generation)
	}()

	return nil
}

// Login выполняет вход. При успехе сохраняет токен и последовательно дожидается
// загрузки профиля магазина и прогресса онбординга. При ошибке текст ошибки
// сохраняется в State.Error.
func (b *Bootstrap) Login(ctx context.Context, creds model.Credentials) (*model.UserIdentity, error) {
	return b.authenticate(ctx, func(ctx context.Context) (*model.AuthResult, error) {
		return b.transport.Login(ctx, creds)
	})
}

// Register регистрирует мерчанта; контракт совпадает с Login.
func (b *Bootstrap) Register(ctx context.Context, req model.RegisterRequest) (*model.UserIdentity, error) {
	return b.authenticate(ctx, func(ctx context.Context) (*model.AuthResult, error) {
		return b.transport.Register(ctx, req)
	})
}

func (b *Bootstrap) authenticate(ctx context.Context, call func(context.Context) (*model.AuthResult, error)) (*model.UserIdentity, error) {
	b.mu.Lock()
	b.phase = PhaseAuthenticating
	b.errMsg = ""
	b.mu.Unlock()

	res, err := call(ctx)
	if err != nil {
		b.failAuthentication(ctx, err)
		return nil, err
	}

	if err := b.store.Set(ctx, CredentialKey, res.Token); err != nil {
		b.logger.Error("save credential", zap.Error(err))
		b.failAuthentication(ctx, errors.New("could not save the session, please try again"))
		return nil, fmt.Errorf("save credential: %w", err)
	}

	user := res.User

	b.mu.Lock()
	b.epoch++
	generation := b.epoch
	b.credential = res.Token
	b.user = &user
	b.authReady = true
	b.phase = PhaseAuthenticated
	b.merchant.reset(generation)
	b.onboarding.reset(generation)
	b.mu.Unlock()

	// Вход уже принят бэкендом: загрузки доводятся до конца даже при отмене ctx вызывающего.
	loadCtx := context.WithoutCancel(ctx)
	b.merchant.load(loadCtx, generation)
	b.onboarding.load(loadCtx, generation)

	return &user, nil
}

// failAuthentication сбрасывает сессию и запоминает текст ошибки. Если до этого
// была активна другая сессия, её токен удаляется и из хранилища.
func (b *Bootstrap) failAuthentication(ctx context.Context, err error) {
	b.mu.Lock()
	hadCredential := b.credential != ""
	b.resetLocked()
	b.errMsg = err.Error()
	b.mu.Unlock()

	if hadCredential {
		b.removeStoredCredential(context.WithoutCancel(ctx))
	}
}

// Logout сбрасывает сессию в анонимное состояние. Выход на бэкенде выполняется
// после сброса и только по возможности: его ошибка логируется и не возвращается.
func (b *Bootstrap) Logout(ctx context.Context) {
	b.mu.Lock()
	token := b.credential
	b.resetLocked()
	b.mu.Unlock()

	b.removeStoredCredential(ctx)

	if token == "" {
		return
	}
	if err := b.transport.Logout(backend.WithToken(ctx, token)); err != nil {
		b.logger.Warn("backend logout failed", zap.Error(err))
	}
}

// RefreshUser повторно запрашивает текущего пользователя. Ответ 401 завершает сессию.
func (b *Bootstrap) RefreshUser(ctx context.Context) (*model.UserIdentity, error) {
	b.mu.Lock()
	token := b.credential
	generation := b.epoch
	b.mu.Unlock()

	if token == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := b.transport.GetCurrentUser(backend.WithToken(ctx, token))
	if err != nil {
		if backend.IsUnauthorized(err) {
			b.mu.Lock()
			current := b.epoch == generation
			if current {
				b.resetLocked()
			}
			b.mu.Unlock()
			if current {
				b.removeStoredCredential(ctx)
			}
		}
		return nil, err
	}

	b.mu.Lock()
	if b.epoch == generation {
		b.user = user
	}
	b.mu.Unlock()

	v := *user
	return &v, nil
}

// RefreshMerchant перезагружает профиль магазина в рамках текущей сессии.
func (b *Bootstrap) RefreshMerchant(ctx context.Context) error {
	generation, err := b.activeGeneration()
	if err != nil {
		return err
	}
	b.merchant.load(context.WithoutCancel(ctx), generation)
	return nil
}

// RefreshOnboarding перезагружает прогресс онбординга в рамках текущей сессии.
func (b *Bootstrap) RefreshOnboarding(ctx context.Context) error {
	generation, err := b.activeGeneration()
	if err != nil {
		return err
	}
	b.onboarding.load(context.WithoutCancel(ctx), generation)
	return nil
}

// ClearError сбрасывает последнюю ошибку аутентификации.
func (b *Bootstrap) ClearError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errMsg = ""
}

// State возвращает снимок состояния сессии.
func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := State{
		Phase:         b.phase,
		HasCredential: b.credential != "",
		AuthReady:     b.authReady,
		Error:         b.errMsg,
	}
	if b.user != nil {
		u := *b.user
		s.User = &u
	}
	s.Merchant, s.MerchantLoading, s.MerchantLoadAttempted = b.merchant.snapshot()
	s.Onboarding, s.OnboardingLoading, s.OnboardingLoadAttempted = b.onboarding.snapshot()

	return s
}

// Wait блокируется до завершения фоновых загрузок, запущенных Initialize.
func (b *Bootstrap) Wait() {
	b.wg.Wait()
}

func (b *Bootstrap) activeGeneration() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase != PhaseAuthenticated {
		return 0, ErrNotAuthenticated
	}
	return b.epoch, nil
}

// finishAnonymous завершает инициализацию без пользователя. Если за время
// инициализации сессия уже сменилась, состояние не трогается и возвращается false.
func (b *Bootstrap) finishAnonymous(generation uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.authReady = true
	if b.epoch != generation {
		return false
	}
	b.credential = ""
	b.user = nil
	b.phase = PhaseAnonymous
	return true
}

// resetLocked вызывается под b.mu. AuthReady не сбрасывается: первичная проверка уже завершена.
func (b *Bootstrap) resetLocked() {
	b.epoch++
	b.credential = ""
	b.user = nil
	b.errMsg = ""
	b.phase = PhaseAnonymous
	b.merchant.reset(b.epoch)
	b.onboarding.reset(b.epoch)
}

func (b *Bootstrap) removeStoredCredential(ctx context.Context) {
	if err := b.store.Remove(ctx, CredentialKey); err != nil {
		b.logger.Warn("remove stored credential", zap.Error(err))
	}
}
