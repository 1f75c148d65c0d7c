package question

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// SetLoader fetches a topic's question set from a backing store.
type SetLoader interface {
	LoadSet(ctx context.Context, topic string, n int) ([]domain.Question, error)
}

// CachedSource caches topic question sets with a TTL so a ready-toggle race
// (both players flipping ready at once) loads each topic only once.
type CachedSource struct {
	loader SetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedSource(loader SetLoader, ttl time.Duration) *CachedSource {
	return &CachedSource{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (s *CachedSource) Questions(ctx context.Context, spec domain.QuizSpec) ([]domain.Question, error) {
	topic := spec.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	now := s.clock()
	s.mu.RLock()
	if entry, ok := s.cache[topic]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return trim(entry.questions, spec.NumQuestions), nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(topic, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[topic]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.questions, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadSet(ctx, topic, spec.NumQuestions)
		if err != nil {
			return nil, err
		}
		questions = Normalize(questions)

		s.mu.Lock()
		s.cache[topic] = cachedSet{
			questions: questions,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return trim(result.([]domain.Question), spec.NumQuestions), nil
}

func trim(questions []domain.Question, n int) []domain.Question {
	if n <= 0 || n >= len(questions) {
		return questions
	}
	return questions[:n]
}

func (s *CachedSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
