package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisManager keeps sessions in Redis so they survive restarts. Keys
// carry a TTL so abandoned sessions clean themselves up.
type RedisManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisManager creates a Redis-based session store
func NewRedisManager(redisHost, redisPort string, ttl time.Duration) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisManager{client: client, ttl: ttl}, nil
}

// Get returns the user's session. Redis errors degrade to "no session"
// so a broken store never blocks message handling.
func (m *RedisManager) Get(userID int64) (Session, bool) {
	ctx := context.Background()

	result := m.client.Get(ctx, sessionKey(userID))
	if result.Err() == redis.Nil {
		return Session{}, false
	}
	if result.Err() != nil {
		logger.Warningf("Redis session read failed for user %d: %v", userID, result.Err())
		return Session{}, false
	}

	var session Session
	if err := json.Unmarshal([]byte(result.Val()), &session); err != nil {
		logger.Warningf("Corrupt session for user %d discarded: %v", userID, err)
		return Session{}, false
	}

	return session, true
}

// Set stores the user's session with the configured TTL
func (m *RedisManager) Set(userID int64, session Session) {
	ctx := context.Background()

	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		logger.Errorf("Failed to marshal session for user %d: %v", userID, err)
		return
	}

	if err := m.client.Set(ctx, sessionKey(userID), data, m.ttl).Err(); err != nil {
		logger.Warningf("Redis session write failed for user %d: %v", userID, err)
	}
}

// Clear removes the user's session
func (m *RedisManager) Clear(userID int64) {
	ctx := context.Background()
	if err := m.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		logger.Warningf("Redis session delete failed for user %d: %v", userID, err)
	}
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("user:%d:session", userID)
}
