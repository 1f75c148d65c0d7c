package question

import (
	"context"
	"strconv"
	"strings"

	"quiz-room-service/internal/domain"
)

// Source produces the ordered question list for a room spec.
type Source interface {
	Questions(ctx context.Context, spec domain.QuizSpec) ([]domain.Question, error)
}

// DefaultTopic is used when a topic-mode spec carries no topic.
const DefaultTopic = "General knowledge"

// ModeSource routes between math generation and a topic-backed source.
type ModeSource struct {
	math  Source
	topic Source
}

func NewModeSource(topic Source) *ModeSource {
	return &ModeSource{math: NewMathSource(), topic: topic}
}

func (s *ModeSource) Questions(ctx context.Context, spec domain.QuizSpec) ([]domain.Question, error) {
	if spec.Mode == domain.ModeMath {
		return s.math.Questions(ctx, spec)
	}
	if s.topic == nil {
		return nil, domain.ErrNoQuestions
	}
	return s.topic.Questions(ctx, spec)
}

// StaticSource serves fixed question sets keyed by topic (tests/demos).
type StaticSource struct {
	sets map[string][]domain.Question
}

func NewStaticSource(sets map[string][]domain.Question) *StaticSource {
	return &StaticSource{sets: sets}
}

func (s *StaticSource) Questions(ctx context.Context, spec domain.QuizSpec) ([]domain.Question, error) {
	topic := spec.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	set, err := s.LoadSet(ctx, topic, spec.NumQuestions)
	if err != nil {
		return nil, err
	}
	return Normalize(set), nil
}

// LoadSet implements SetLoader so a StaticSource can sit behind a cache.
func (s *StaticSource) LoadSet(_ context.Context, topic string, n int) ([]domain.Question, error) {
	set, ok := s.sets[topic]
	if !ok {
		return nil, domain.ErrNoQuestions
	}
	if n <= 0 || n > len(set) {
		n = len(set)
	}
	return set[:n], nil
}

// Normalize enforces the engine's question shape: 2-4 non-empty choices in,
// exactly 4 out (padded with placeholders), correct index clamped into range.
// Questions with fewer than 2 usable choices are dropped.
func Normalize(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		choices := make([]string, 0, len(q.Choices))
		for _, c := range q.Choices {
			if trimmed := strings.TrimSpace(c); trimmed != "" {
				choices = append(choices, trimmed)
			}
		}
		if len(choices) < 2 {
			continue
		}
		if len(choices) > 4 {
			choices = choices[:4]
		}
		for len(choices) < 4 {
			choices = append(choices, "Option "+strconv.Itoa(len(choices)+1))
		}
		idx := q.CorrectIndex
		if idx < 0 || idx >= len(choices) {
			idx = 0
		}
		out = append(out, domain.Question{
			Prompt:       strings.TrimSpace(q.Prompt),
			Choices:      choices,
			CorrectIndex: idx,
		})
	}
	return out
}
