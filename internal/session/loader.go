package session

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// outcome содержит итог выполнения операции с повторами.
type outcome[T any] struct {
	value     *T
	attempts  int
	err       error
	exhausted bool
}

// withBackoff выполняет op, повторяя её по расписанию b. Каждая неудачная попытка
// передаётся в onFailure. exhausted выставляется, если повторы закончились,
// а не был отменён контекст.
func withBackoff[T any](ctx context.Context, b retry.Backoff, op func(context.Context) (*T, error), onFailure func(attempt int, err error)) outcome[T] {
	var res outcome[T]

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		res.attempts++
		v, err := op(ctx)
		if err != nil {
			onFailure(res.attempts, err)
			return retry.RetryableError(err)
		}
		res.value = v
		return nil
	})
	if err != nil {
		res.value = nil
		res.err = err
		res.exhausted = ctx.Err() == nil
	}

	return res
}

// exponentialBackoff возвращает фабрику расписаний base, 2*base, 4*base... из maxRetries повторов.
func exponentialBackoff(maxRetries int, base time.Duration) func() retry.Backoff {
	return func() retry.Backoff {
		return retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(base))
	}
}

// loader загружает вспомогательный ресурс сессии и владеет данными и флагами загрузки.
type loader[T any] struct {
	name       string
	fetch      func(context.Context) (*T, error)
	newBackoff func() retry.Backoff
	logger     *zap.Logger

	mu         sync.Mutex
	generation uint64
	data       *T
	inflight   int
	attempted  bool
}

func newLoader[T any](name string, fetch func(context.Context) (*T, error), newBackoff func() retry.Backoff, logger *zap.Logger) *loader[T] {
	return &loader[T]{
		name:       name,
		fetch:      fetch,
		newBackoff: newBackoff,
		logger:     logger.With(zap.String("resource", name)),
	}
}

// reset сбрасывает состояние и переводит загрузчик в новое поколение.
// Результаты загрузок предыдущих поколений после этого отбрасываются.
func (l *loader[T]) reset(generation uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.generation = generation
	l.data = nil
	l.inflight = 0
	l.attempted = false
}

// load выполняет загрузку с повторами. Ошибки только логируются.
// attempted выставляется только по итогу: успех или исчерпанные повторы.
// Загрузка, прерванная отменой ctx, флаг не трогает.
func (l *loader[T]) load(ctx context.Context, generation uint64) {
	l.mu.Lock()
	if generation != l.generation {
		l.mu.Unlock()
		return
	}
	l.inflight++
	l.mu.Unlock()

	res := withBackoff(ctx, l.newBackoff(), l.fetch, func(attempt int, err error) {
		l.logger.Warn("load attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	if generation != l.generation {
		l.logger.Debug("discarding stale load result", zap.Uint64("generation", generation))
		return
	}

	l.inflight--

	switch {
	case res.err == nil:
		l.data = res.value
		l.attempted = true
	case res.exhausted:
		l.logger.Error("load failed",
			zap.Int("attempts", res.attempts),
			zap.Error(res.err),
		)
		l.attempted = true
	default:
		l.logger.Warn("load interrupted", zap.Int("attempts", res.attempts), zap.Error(res.err))
	}
}

// snapshot возвращает копию данных и флаги загрузки.
func (l *loader[T]) snapshot() (*T, bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var data *T
	if l.data != nil {
		v := *l.data
		data = &v
	}
	return data, l.inflight > 0, l.attempted
}
