// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"facet.views/internal/models"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

const redeemRetries = 3

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) SaveView(ctx context.Context, view *models.View) error {
	data, err := encode(view)
	if err != nil {
		return err
	}

	// Slugs are immutable, so the mapping only contends at creation time.
	ok, err := r.client.SetNX(ctx, slugKey(view.Slug), view.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		existing, err := r.client.Get(ctx, slugKey(view.Slug)).Result()
		if err != nil {
			return err
		}
		if existing != view.ID {
			return ErrSlugTaken
		}
	}

	return r.client.Set(ctx, viewKey(view.ID), data, 0).Err()
}

func (r *RedisStore) ViewByID(ctx context.Context, id string) (*models.View, error) {
	data, err := r.client.Get(ctx, viewKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode[models.View](data)
}

func (r *RedisStore) ViewBySlug(ctx context.Context, slug string) (*models.View, error) {
	id, err := r.client.Get(ctx, slugKey(slug)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.ViewByID(ctx, id)
}

func (r *RedisStore) SaveToken(ctx context.Context, token *models.ShareToken) error {
	data, err := encode(token)
	if err != nil {
		return err
	}

	// Tokens are never deleted, so no TTL: expiry is part of the validity
	// predicate, and expired records stay around for audit history.
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(token.ID), data, 0)
		pipe.Set(ctx, digestKey(token.Digest), token.ID, 0)
		pipe.SAdd(ctx, viewTokensKey(token.ViewID), token.ID)
		return nil
	})
	return err
}

func (r *RedisStore) TokenByID(ctx context.Context, id string) (*models.ShareToken, error) {
	data, err := r.client.Get(ctx, tokenKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode[models.ShareToken](data)
}

func (r *RedisStore) TokensByView(ctx context.Context, viewID string) ([]*models.ShareToken, error) {
	ids, err := r.client.SMembers(ctx, viewTokensKey(viewID)).Result()
	if err != nil {
		return nil, err
	}

	tokens := make([]*models.ShareToken, 0, len(ids))
	for _, id := range ids {
		token, err := r.TokenByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (r *RedisStore) RevokeToken(ctx context.Context, id string) error {
	key := tokenKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		token, err := decode[models.ShareToken](data)
		if err != nil {
			return err
		}

		token.Active = false
		newData, err := encode(token)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redeemRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *RedisStore) ValidateToken(ctx context.Context, digest string, now time.Time) (string, error) {
	token, err := r.tokenByDigest(ctx, digest)
	if err != nil {
		return "", err
	}
	if err := tokenUsable(token, now); err != nil {
		return "", err
	}
	return token.ViewID, nil
}

// RedeemToken increments the usage counter under WATCH so the validity
// predicate and the increment form a single atomic unit: concurrent
// redemptions against a finite quota retry until exactly one wins each slot.
func (r *RedisStore) RedeemToken(ctx context.Context, digest, viewID string, now time.Time) error {
	// The digest -> id mapping is immutable once written.
	id, err := r.client.Get(ctx, digestKey(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTokenInvalid
		}
		return err
	}
	key := tokenKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrTokenInvalid
			}
			return err
		}

		token, err := decode[models.ShareToken](data)
		if err != nil {
			return err
		}

		if token.ViewID != viewID {
			return ErrTokenInvalid
		}
		if err := tokenUsable(token, now); err != nil {
			return err
		}

		token.UseCount++
		used := now
		token.LastUsedAt = &used

		newData, err := encode(token)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redeemRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *RedisStore) SaveOwner(ctx context.Context, owner *models.Owner) error {
	data, err := encode(owner)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ownerKey(owner.ID), data, 0)
		pipe.Set(ctx, ownerKeyDigestKey(owner.KeyDigest), owner.ID, 0)
		return nil
	})
	return err
}

func (r *RedisStore) OwnerByKeyDigest(ctx context.Context, digest string) (*models.Owner, error) {
	id, err := r.client.Get(ctx, ownerKeyDigestKey(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	data, err := r.client.Get(ctx, ownerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode[models.Owner](data)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) tokenByDigest(ctx context.Context, digest string) (*models.ShareToken, error) {
	id, err := r.client.Get(ctx, digestKey(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	token, err := r.TokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return token, nil
}

// Helpers

func viewKey(id string) string           { return "view:" + id }
func slugKey(slug string) string         { return "view:slug:" + slug }
func tokenKey(id string) string          { return "token:" + id }
func digestKey(digest string) string     { return "token:digest:" + digest }
func viewTokensKey(viewID string) string { return "view:tokens:" + viewID }
func ownerKey(id string) string          { return "owner:" + id }
func ownerKeyDigestKey(d string) string  { return "owner:key:" + d }

func encode(record any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode[T any](data []byte) (*T, error) {
	var record T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}
