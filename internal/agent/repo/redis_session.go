package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// RedisSessionRepository stores the state record as one JSON value and the
// transcript as a Redis list so entries are only ever appended.
type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) stateKey(sessionID string) string {
	return fmt.Sprintf("session:%s:state", sessionID)
}

func (r *RedisSessionRepository) transcriptKey(sessionID string) string {
	return fmt.Sprintf("session:%s:transcript", sessionID)
}

func (r *RedisSessionRepository) Load(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	key := r.stateKey(sessionID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load session state from redis")
		return nil, errx.WrapRedis(err)
	}

	var st model.ConversationState
	if err := json.Unmarshal(raw, &st); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal session state")
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}

	tkey := r.transcriptKey(sessionID)
	rows, err := r.rdb.LRange(ctx, tkey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", tkey).Msg("failed to load transcript from redis")
		return nil, errx.WrapRedis(err)
	}
	st.History = append(make([]string, 0, len(rows)), rows...)
	return &st, nil
}

// Save appends transcript entries beyond those already stored and rewrites the state record.
func (r *RedisSessionRepository) Save(ctx context.Context, st *model.ConversationState) error {
	if st == nil || st.ID == "" {
		return errx.Validation("session id is required")
	}
	tkey := r.transcriptKey(st.ID)
	skey := r.stateKey(st.ID)

	stored, err := r.rdb.LLen(ctx, tkey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", tkey).Msg("failed to read transcript length")
		return errx.WrapRedis(err)
	}
	if int(stored) > len(st.History) {
		return fmt.Errorf("session %s: transcript has %d stored entries but state carries %d", st.ID, stored, len(st.History))
	}

	record := *st
	record.History = nil
	b, err := json.Marshal(&record)
	if err != nil {
		logx.Error().Err(err).Str("session_id", st.ID).Msg("failed to marshal session state")
		return fmt.Errorf("marshal session state: %w", err)
	}

	pending := st.History[stored:]
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(pending) > 0 {
			values := make([]any, len(pending))
			for i, v := range pending {
				values[i] = v
			}
			pipe.RPush(ctx, tkey, values...)
		}
		pipe.Set(ctx, skey, b, r.ttl)
		// extend TTL on touch
		if r.ttl > 0 {
			pipe.Expire(ctx, tkey, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", st.ID).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, r.stateKey(sessionID), r.transcriptKey(sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
