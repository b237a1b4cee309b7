package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"factoryops.app/assistant/internal/model"
)

// NewRedisStores keeps each entity as a JSON string under
// "<prefix>investigation:<id>" and an index sorted set ordered by creation
// time. Entity SET and index ZADD go through one MULTI/EXEC.
func NewRedisStores(client *redis.Client, prefix string) *Stores {
	return &Stores{
		backend: "redis",
		investigations: &redisInvestigationStore{
			redisKeys: redisKeys{client: client, prefix: prefix + "investigation:"},
		},
		actions: &redisActionStore{
			redisKeys: redisKeys{client: client, prefix: prefix + "action:"},
		},
	}
}

type redisKeys struct {
	client *redis.Client
	prefix string
}

func (k redisKeys) key(id string) string { return k.prefix + id }
func (k redisKeys) index() string        { return k.prefix + "index" }

func (k redisKeys) ping(ctx context.Context) error {
	return k.client.Ping(ctx).Err()
}

func (k redisKeys) get(ctx context.Context, id string, dst any) error {
	body, err := k.client.Get(ctx, k.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func (k redisKeys) put(ctx context.Context, id string, createdAt int64, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = k.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k.key(id), body, 0)
		pipe.ZAdd(ctx, k.index(), redis.Z{Score: float64(createdAt), Member: id})
		return nil
	})
	return err
}

// all returns every stored body in index order. Ids whose key vanished are skipped.
func (k redisKeys) all(ctx context.Context) ([][]byte, error) {
	ids, err := k.client.ZRange(ctx, k.index(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = k.key(id)
	}
	values, err := k.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	bodies := make([][]byte, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		bodies = append(bodies, []byte(s))
	}
	return bodies, nil
}

type redisInvestigationStore struct {
	redisKeys
}

func (s *redisInvestigationStore) Get(ctx context.Context, id string) (*model.Investigation, error) {
	var inv model.Investigation
	if err := s.get(ctx, id, &inv); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get investigation %s: %w", id, err)
	}
	return &inv, nil
}

func (s *redisInvestigationStore) Put(ctx context.Context, inv model.Investigation) error {
	if err := s.put(ctx, inv.ID, inv.CreatedAt.UnixMicro(), inv); err != nil {
		return fmt.Errorf("put investigation %s: %w", inv.ID, err)
	}
	return nil
}

func (s *redisInvestigationStore) List(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	bodies, err := s.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}

	result := []model.Investigation{}
	for _, body := range bodies {
		var inv model.Investigation
		if err := json.Unmarshal(body, &inv); err != nil {
			return nil, fmt.Errorf("decode investigation: %w", err)
		}
		if filter.Match(inv) {
			result = append(result, inv)
		}
	}
	return result, nil
}

type redisActionStore struct {
	redisKeys
}

func (s *redisActionStore) Get(ctx context.Context, id string) (*model.Action, error) {
	var a model.Action
	if err := s.get(ctx, id, &a); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get action %s: %w", id, err)
	}
	return &a, nil
}

func (s *redisActionStore) Put(ctx context.Context, a model.Action) error {
	if err := s.put(ctx, a.ID, a.CreatedAt.UnixMicro(), a); err != nil {
		return fmt.Errorf("put action %s: %w", a.ID, err)
	}
	return nil
}

func (s *redisActionStore) List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	bodies, err := s.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	result := []model.Action{}
	for _, body := range bodies {
		var a model.Action
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		if filter.Match(a) {
			result = append(result, a)
		}
	}
	return result, nil
}
