package attempt

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists attempt state in Redis under a per-client namespace.
// The namespace (derived from the client sid) scopes the state the way
// browser-local storage scopes it to one browser.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore creates a RedisStore. ttl bounds abandoned state; the
// completed marker is written without expiry.
func NewRedisStore(rdb *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return s.namespace + k
}

// StartTime returns the persisted attempt start time, if any.
func (s *RedisStore) StartTime(quizID uuid.UUID, studentID int) (time.Time, bool, error) {
	ctx := context.Background()
	val, err := s.rdb.Get(ctx, s.key(startTimeKey(quizID, studentID))).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(unix, 0), true, nil
}

// SaveStartTime persists the attempt start time as a Unix timestamp.
func (s *RedisStore) SaveStartTime(quizID uuid.UUID, studentID int, t time.Time) error {
	ctx := context.Background()
	return s.rdb.Set(ctx, s.key(startTimeKey(quizID, studentID)), t.Unix(), s.ttl).Err()
}

// Answers returns the persisted answer map, empty if none was saved.
func (s *RedisStore) Answers(quizID uuid.UUID, studentID int) (map[string]string, error) {
	ctx := context.Background()
	answers, err := s.rdb.HGetAll(ctx, s.key(answersKey(quizID, studentID))).Result()
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return answers, nil
}

// SaveAnswers writes the full answer map. Answers only ever gain or overwrite
// entries, so a hash merge is equivalent to a full rewrite.
func (s *RedisStore) SaveAnswers(quizID uuid.UUID, studentID int, answers map[string]string) error {
	if len(answers) == 0 {
		return nil
	}
	ctx := context.Background()
	key := s.key(answersKey(quizID, studentID))

	flat := make(map[string]interface{}, len(answers))
	for k, v := range answers {
		flat[k] = v
	}

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, flat)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// ClearAttempt removes the start time and answers for the attempt.
func (s *RedisStore) ClearAttempt(quizID uuid.UUID, studentID int) error {
	ctx := context.Background()
	return s.rdb.Del(ctx,
		s.key(startTimeKey(quizID, studentID)),
		s.key(answersKey(quizID, studentID)),
	).Err()
}

// Completed reports whether the completed marker for the quiz is set.
func (s *RedisStore) Completed(quizID uuid.UUID) (bool, error) {
	ctx := context.Background()
	n, err := s.rdb.Exists(ctx, s.key(completedKey(quizID))).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetCompleted sets the durable completed marker for the quiz.
func (s *RedisStore) SetCompleted(quizID uuid.UUID) error {
	ctx := context.Background()
	return s.rdb.Set(ctx, s.key(completedKey(quizID)), "1", 0).Err()
}
