// Package lock serializa emisiones concurrentes del mismo pedido.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
)

// RedisLocker lock distribuido por pedido sobre Redis (SET NX con TTL).
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLocker construye el locker. El TTL acota cuánto puede quedar tomado el lock
// si el proceso muere a mitad de una emisión.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, logger: logger}
}

// Key clave Redis del lock de un pedido.
func Key(storeID, orderID string) string {
	return fmt.Sprintf("fiscal:emit:%s:%s", storeID, orderID)
}

// Lock toma el lock del pedido sin reintentos. Si otro proceso lo tiene devuelve
// domain.ErrEmissionInProgress. release se puede llamar más de una vez.
func (l *RedisLocker) Lock(ctx context.Context, storeID, orderID string) (release func(), err error) {
	key := Key(storeID, orderID)
	lk, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrEmissionInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("obtener lock %s: %w", key, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// El contexto del request puede estar vencido; la liberación no depende de él.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := lk.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el lock de emisión")
			}
		})
	}, nil
}

// NoopLocker no serializa nada: emisiones concurrentes del mismo pedido crean documentos distintos.
type NoopLocker struct{}

// Lock siempre obtiene el lock.
func (NoopLocker) Lock(context.Context, string, string) (release func(), err error) {
	return func() {}, nil
}
