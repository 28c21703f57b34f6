// Package repository содержит хранилища ключ-значение для учётных данных панели.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// retryDelays задаёт паузы между повторами записи при временных ошибках БД.
var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// PostgresRepository хранит пары ключ-значение в таблице client_storage.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Get возвращает значение по ключу. Второй результат равен false, если ключа нет.
func (r *PostgresRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM client_storage WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set сохраняет значение, перезаписывая предыдущее.
func (r *PostgresRepository) Set(ctx context.Context, key, value string) error {
	return withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO client_storage (key, value, updated_at) VALUES ($1, $2, NOW())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	})
}

// Remove удаляет ключ. Отсутствие ключа ошибкой не считается.
func (r *PostgresRepository) Remove(ctx context.Context, key string) error {
	return withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM client_storage WHERE key = $1`, key)
		if err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		return nil
	})
}

// delayBackoff отдаёт паузы из delays по очереди и останавливается, когда они заканчиваются.
func delayBackoff(delays []time.Duration) retry.Backoff {
	next := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		if next >= len(delays) {
			return 0, true
		}
		d := delays[next]
		next++
		return d, false
	})
}

func withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, delayBackoff(retryDelays), func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста, выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}
