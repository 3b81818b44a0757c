package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/footage/internal/db"
)

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// HSetMulti pipelines one HSET per item. The first failing key is reported.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		cmds = append(cmds, s.hset(item.Key, item.Fields))
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return classify(db.OpHSet, items[i].Key, err)
		}
	}
	return nil
}

// HGetAll returns all fields of a hash. An empty reply means the key is absent.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, classify(db.OpHGetAll, key, err)
	}
	if len(m) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return m, nil
}

// Del deletes a key. Deleting an absent key returns ErrKeyNotFound.
func (s *Store) Del(ctx context.Context, key string) error {
	n, err := s.do(ctx, s.b().Del().Key(key).Build()).AsInt64()
	if err != nil {
		return classify(db.OpDel, key, err)
	}
	if n == 0 {
		return db.ErrKeyNotFound
	}
	return nil
}
