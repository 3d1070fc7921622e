package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/redis/go-redis/v9"
)

// удаляет ключ, только если в нем лежит ожидаемый id подтверждения
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func New(ctx context.Context, addr, pass string, db int, ttl time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
		ttl:    ttl,
	}, nil
}

func confirmationKey(userID string) string {
	return fmt.Sprintf("2fa:confirmation:%s", userID)
}

// * SaveTwoFactorConfirmation сохраняет подтверждение, заменяя предыдущее для пользователя
func (r *RedisRepo) SaveTwoFactorConfirmation(ctx context.Context, c models.TwoFactorConfirmation) error {
	const op = "storage.redis.SaveTwoFactorConfirmation"

	if err := r.client.Set(ctx, confirmationKey(c.UserID), c.ID, r.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) TwoFactorConfirmation(ctx context.Context, userID string) (models.TwoFactorConfirmation, error) {
	const op = "storage.redis.TwoFactorConfirmation"

	id, err := r.client.Get(ctx, confirmationKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.TwoFactorConfirmation{}, storage.ErrConfirmationNotFound
		}

		return models.TwoFactorConfirmation{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TwoFactorConfirmation{ID: id, UserID: userID}, nil
}

// * DeleteTwoFactorConfirmation атомарно погашает подтверждение (через Lua скрипт)
// Возвращает false, если его уже погасил параллельный вход или заменило новое
func (r *RedisRepo) DeleteTwoFactorConfirmation(ctx context.Context, c models.TwoFactorConfirmation) (bool, error) {
	const op = "storage.redis.DeleteTwoFactorConfirmation"

	n, err := compareAndDelete.Run(ctx, r.client, []string{confirmationKey(c.UserID)}, c.ID).Int64()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n == 1, nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
