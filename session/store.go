package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the secret question engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned for a missing or expired session.
var ErrSessionNotFound = errors.New("authentication session not found")

// ErrSessionConflict is returned when a note update keeps losing to
// concurrent writers.
var ErrSessionConflict = errors.New("authentication session update conflict")

const (
	minSlidingTTL   = time.Second
	maxNoteAttempts = 5
)

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed authentication session store. Sessions idle out
// after idleTTL and never outlive maxLifetime.
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	idleTTL       time.Duration
	maxLifetime   time.Duration
	jitterEnabled bool
	jitterRange   time.Duration
	now           func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// Every read renews the idle TTL, with optional jitter, up to maxLifetime.
// A maxLifetime below idleTTL is raised to idleTTL.
func NewStore(
	redis redis.UniversalClient,
	prefix string,
	idleTTL time.Duration,
	maxLifetime time.Duration,
	jitterEnabled bool,
	jitterRange time.Duration,
) *Store {
	if maxLifetime < idleTTL {
		maxLifetime = idleTTL
	}
	return &Store{
		redis:         redis,
		prefix:        prefix,
		idleTTL:       idleTTL,
		maxLifetime:   maxLifetime,
		jitterEnabled: jitterEnabled,
		jitterRange:   jitterRange,
		now:           time.Now,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKey(realm, userID string) string {
	return s.prefix + ":u:" + realm + ":" + userID
}

// Create starts an authentication session for userID in realm with a copy
// of notes.
//
//	Performance: 1 MULTI/EXEC (SET + SADD + EXPIRE).
func (s *Store) Create(ctx context.Context, userID, realm string, notes map[string]string) (*Session, error) {
	if s.idleTTL <= 0 {
		return nil, errors.New("session idle ttl must be > 0")
	}

	now := s.now()
	sess := &Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Realm:     realm,
		Notes:     cloneNotes(notes),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.maxLifetime).Unix(),
	}

	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	userKey := s.userKey(realm, userID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, s.idleTTL)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, s.maxLifetime)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Get retrieves a live session and renews its idle TTL, never past the
// absolute expiry.
//
//	Performance: 1 Redis GET + 1 PEXPIRE.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	remaining := time.Unix(sess.ExpiresAt, 0).Sub(s.now())
	if remaining <= 0 {
		if _, err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	nextTTL, err := s.nextSlidingTTL(remaining)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Expire(ctx, key, nextTTL).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// SetNote sets one client note. An empty value removes the note.
//
//	Performance: optimistic WATCH/MULTI, retried on conflict.
func (s *Store) SetNote(ctx context.Context, sessionID, name, value string) error {
	key := s.key(sessionID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}
		sess, err := Decode(data)
		if err != nil {
			return err
		}
		if value == "" {
			delete(sess.Notes, name)
		} else {
			sess.Notes[name] = value
		}
		encoded, err := Encode(sess)
		if err != nil {
			return err
		}

		pttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if pttl <= 0 {
			return ErrSessionNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, pttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxNoteAttempts; i++ {
		err := s.redis.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionCorrupt):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return ErrSessionConflict
}

// Delete removes a session and its index entry. Deleting a missing session
// reports false.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sess, err := Decode(data)
	if err != nil {
		return false, err
	}

	existed, err := deleteSessionLua.Run(ctx, s.redis, []string{key, s.userKey(sess.Realm, sess.UserID)}, sessionID).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// ActiveSessionIDs returns tracked session IDs for a user in a realm.
func (s *Store) ActiveSessionIDs(ctx context.Context, realm, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(realm, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) nextSlidingTTL(remainingAbsolute time.Duration) (time.Duration, error) {
	nextTTL := s.idleTTL

	if s.jitterEnabled && s.jitterRange > 0 {
		jitter, err := randomJitter(s.jitterRange)
		if err != nil {
			return 0, err
		}
		nextTTL += jitter
	}

	if nextTTL > remainingAbsolute {
		nextTTL = remainingAbsolute
	}

	minTTL := minSlidingTTL
	if remainingAbsolute < minTTL {
		minTTL = remainingAbsolute
	}
	if nextTTL < minTTL {
		nextTTL = minTTL
	}

	return nextTTL, nil
}

func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max > (math.MaxInt64-1)/2 {
		return 0, errors.New("jitter range too large")
	}
	span := max*2 + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}

	return time.Duration(n.Int64() - max), nil
}
