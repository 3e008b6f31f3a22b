package main

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"event-reservation/shared"

	"github.com/go-redis/redis/v8"
)

// ConfirmationLedger is the durable log of confirmed reservations. The
// coordinator only tracks live holds; once a reservation is confirmed it
// is appended here, outside the coordinator lock.
type ConfirmationLedger interface {
	Append(ctx context.Context, res shared.Reservation) error
	List(ctx context.Context) ([]shared.Reservation, error)
}

// RedisLedger stores confirmed reservations in a Redis hash keyed by
// user id.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Append(ctx context.Context, res shared.Reservation) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return l.client.HSet(ctx, shared.RedisKeyConfirmed, res.UserID, data).Err()
}

func (l *RedisLedger) List(ctx context.Context) ([]shared.Reservation, error) {
	entries, err := l.client.HGetAll(ctx, shared.RedisKeyConfirmed).Result()
	if err != nil {
		return nil, err
	}

	reservations := make([]shared.Reservation, 0, len(entries))
	for userID, raw := range entries {
		var res shared.Reservation
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			log.Printf("Error unmarshaling ledger entry for user %s: %v", userID, err)
			continue
		}
		reservations = append(reservations, res)
	}

	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].CreatedAt.Before(reservations[j].CreatedAt)
	})
	return reservations, nil
}
