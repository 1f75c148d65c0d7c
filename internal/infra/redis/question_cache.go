package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/question"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache keeps topic question sets in Redis (JSON value with TTL) and
// falls back to a loader on cache miss, so several service instances share
// one generated set per topic.
type QuestionCache struct {
	client *redis.Client
	loader question.SetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader question.SetLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Questions(ctx context.Context, spec domain.QuizSpec) ([]domain.Question, error) {
	topic := spec.Topic
	if topic == "" {
		topic = question.DefaultTopic
	}
	key := c.key(topic)

	if cached, err := c.get(ctx, key); err == nil && len(cached) > 0 {
		return limit(cached, spec.NumQuestions), nil
	}

	result, err, _ := c.sf.Do(topic, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if cached, err := c.get(ctx, key); err == nil && len(cached) > 0 {
			return cached, nil
		}

		questions, err := c.loader.LoadSet(ctx, topic, spec.NumQuestions)
		if err != nil {
			return nil, err
		}
		questions = question.Normalize(questions)

		if data, err := json.Marshal(questions); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return limit(result.([]domain.Question), spec.NumQuestions), nil
}

func (c *QuestionCache) get(ctx context.Context, key string) ([]domain.Question, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal cached question set: %w", err)
	}
	return questions, nil
}

func (c *QuestionCache) key(topic string) string {
	return "quizroom:bank:" + topic
}

func limit(questions []domain.Question, n int) []domain.Question {
	if n <= 0 || n >= len(questions) {
		return questions
	}
	return questions[:n]
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
