package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

const historyPrefix = "asg:alert_history:"

// RedisConfig holds the connection settings of a Redis history store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Redis keeps the alert history in Redis so several guardian processes
// share one cooldown state. Entries are JSON values under
// "asg:alert_history:<DIMENSION>[:<LEVEL>]".
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client}, nil
}

func historyKey(key model.HistoryKey) string {
	return historyPrefix + key.String()
}

func (r *Redis) GetAlertHistory(ctx context.Context, key model.HistoryKey) (*model.AlertHistoryEntry, error) {
	return getEntry(ctx, r.client, historyKey(key))
}

func (r *Redis) PutAlertHistory(ctx context.Context, key model.HistoryKey, entry model.AlertHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal alert history: %w", err)
	}
	if err := r.client.Set(ctx, historyKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("put alert history: %w", err)
	}
	return nil
}

// SwapAlertHistory runs the compare-and-swap as an optimistic
// WATCH/MULTI transaction.
func (r *Redis) SwapAlertHistory(ctx context.Context, key model.HistoryKey, old *model.AlertHistoryEntry, next model.AlertHistoryEntry) (bool, error) {
	k := historyKey(key)
	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("marshal alert history: %w", err)
	}

	swapped := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := getEntry(ctx, tx, k)
		if err != nil {
			return err
		}
		if !sameEntry(current, old) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, 0)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("swap alert history: %w", err)
	}
	return swapped, nil
}

func (r *Redis) ListAlertHistory(ctx context.Context) ([]model.AlertHistoryRecord, error) {
	var out []model.AlertHistoryRecord
	iter := r.client.Scan(ctx, 0, historyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		e, err := getEntry(ctx, r.client, k)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		out = append(out, model.AlertHistoryRecord{Key: parseHistoryKey(strings.TrimPrefix(k, historyPrefix)), Entry: *e})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan alert history: %w", err)
	}

	slices.SortFunc(out, func(a, b model.AlertHistoryRecord) int {
		return cmp.Compare(a.Key.String(), b.Key.String())
	})
	return out, nil
}

func (r *Redis) ResetAlertHistory(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, historyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("reset alert history: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan alert history: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getEntry(ctx context.Context, c getter, k string) (*model.AlertHistoryEntry, error) {
	data, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert history: %w", err)
	}
	var e model.AlertHistoryEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode alert history %s: %w", k, err)
	}
	return &e, nil
}

func parseHistoryKey(s string) model.HistoryKey {
	dim, level, _ := strings.Cut(s, ":")
	return model.HistoryKey{Dimension: model.Dimension(dim), Level: model.Level(level)}
}
