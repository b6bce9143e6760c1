package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const deleteRecordScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// Store is a Redis-backed [goSecretQ.CredentialStore].
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
	newID  func() string
}

// NewStore creates a credential [Store] under prefix. An empty prefix uses
// the engine default.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = goSecretQ.DefaultConfig().Store.CredentialPrefix
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Records and user indexes live under distinct sub-namespaces so no
// caller-supplied id can address an index set.
func (s *Store) key(id string) string {
	return s.prefix + ":r:" + id
}

func (s *Store) userKey(userID, credentialType string) string {
	return s.prefix + ":u:" + userID + ":" + credentialType
}

// GetByID returns the record stored under id, or an error matching
// [goSecretQ.ErrCredentialNotFound].
//
//	Performance: 1 Redis GET.
func (s *Store) GetByID(ctx context.Context, id string) (goSecretQ.CredentialRecord, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return goSecretQ.CredentialRecord{}, goSecretQ.ErrCredentialNotFound
		}
		return goSecretQ.CredentialRecord{}, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}
	return decodeRecord(id, data)
}

// ListByType returns the user's records of credentialType in no particular
// order.
//
//	Performance: 1 SMEMBERS + 1 pipelined GET batch.
func (s *Store) ListByType(ctx context.Context, userID, credentialType string) ([]goSecretQ.CredentialRecord, error) {
	userKey := s.userKey(userID, credentialType)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []goSecretQ.CredentialRecord{}, nil
		}
		return nil, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []goSecretQ.CredentialRecord{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}

	out := make([]goSecretQ.CredentialRecord, 0, len(ids))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, ids[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, cmdErr)
		}
		rec, err := decodeRecord(ids[i], data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
		}
	}

	return out, nil
}

// Create assigns a fresh ID and persists rec for userID together with its
// index entry.
//
//	Performance: 1 MULTI/EXEC (SET + SADD).
func (s *Store) Create(ctx context.Context, userID string, rec goSecretQ.CredentialRecord) (goSecretQ.CredentialRecord, error) {
	rec.ID = s.newID()
	rec.UserID = userID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return goSecretQ.CredentialRecord{}, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.ID), data, 0)
		pipe.SAdd(ctx, s.userKey(userID, rec.Type), rec.ID)
		return nil
	})
	if err != nil {
		return goSecretQ.CredentialRecord{}, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}

	return rec, nil
}

// DeleteByID removes the record and its index entry. Deleting a missing id
// reports false.
//
//	Performance: 1 GET + 1 Lua script (DEL + SREM).
func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, goSecretQ.ErrCredentialNotFound) {
			return false, nil
		}
		return false, err
	}

	existed, err := deleteRecordLua.Run(ctx, s.redis, []string{s.key(id), s.userKey(rec.UserID, rec.Type)}, id).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}
	return existed == 1, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
