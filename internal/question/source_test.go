package question

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-room-service/internal/domain"
)

func TestNormalizePadsAndClamps(t *testing.T) {
	in := []domain.Question{
		{Prompt: " padded ", Choices: []string{"a", "b"}, CorrectIndex: 1},
		{Prompt: "trimmed", Choices: []string{"a", "b", "c", "d", "e"}, CorrectIndex: 4},
		{Prompt: "dropped", Choices: []string{"only"}, CorrectIndex: 0},
		{Prompt: "blank choices", Choices: []string{" ", "", "x", "y"}, CorrectIndex: 0},
	}
	out := Normalize(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 questions after drop, got %d", len(out))
	}

	if out[0].Prompt != "padded" || len(out[0].Choices) != 4 {
		t.Fatalf("expected padded question with 4 choices, got %+v", out[0])
	}
	if out[0].CorrectIndex != 1 {
		t.Fatalf("padding must preserve the correct index, got %d", out[0].CorrectIndex)
	}

	if len(out[1].Choices) != 4 {
		t.Fatalf("expected trim to 4 choices, got %v", out[1].Choices)
	}
	// The correct choice was trimmed away; index clamps to 0.
	if out[1].CorrectIndex != 0 {
		t.Fatalf("expected clamped index 0, got %d", out[1].CorrectIndex)
	}

	if len(out[2].Choices) != 4 {
		t.Fatalf("expected blank choices removed then padded, got %v", out[2].Choices)
	}
}

func TestStaticSourceUnknownTopic(t *testing.T) {
	src := NewStaticSource(map[string][]domain.Question{})
	_, err := src.Questions(context.Background(), domain.QuizSpec{Topic: "nope"})
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestCachedSourceLoadsOnce(t *testing.T) {
	loader := &countingLoader{set: sampleSet()}
	src := NewCachedSource(loader, time.Minute)
	spec := domain.QuizSpec{Mode: domain.ModeTopicAI, Topic: "geo", NumQuestions: 2}

	first, err := src.Questions(context.Background(), spec)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(first))
	}

	if _, err := src.Questions(context.Background(), spec); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestModeSourceRoutesMath(t *testing.T) {
	src := NewModeSource(NewStaticSource(map[string][]domain.Question{"geo": sampleSet()}))

	math, err := src.Questions(context.Background(), domain.QuizSpec{
		Mode: domain.ModeMath, NumQuestions: 3, MinValue: 1, MaxValue: 9,
	})
	if err != nil || len(math) != 3 {
		t.Fatalf("math route failed: %v (%d questions)", err, len(math))
	}

	topic, err := src.Questions(context.Background(), domain.QuizSpec{
		Mode: domain.ModeTopicAI, Topic: "geo",
	})
	if err != nil || len(topic) == 0 {
		t.Fatalf("topic route failed: %v", err)
	}
}

type countingLoader struct {
	set   []domain.Question
	calls int
}

func (l *countingLoader) LoadSet(context.Context, string, int) ([]domain.Question, error) {
	l.calls++
	return l.set, nil
}

func sampleSet() []domain.Question {
	return []domain.Question{
		{Prompt: "Capital of France?", Choices: []string{"Paris", "Lyon", "Nice", "Lille"}, CorrectIndex: 0},
		{Prompt: "Capital of Japan?", Choices: []string{"Osaka", "Kyoto", "Tokyo", "Nara"}, CorrectIndex: 2},
		{Prompt: "Capital of Peru?", Choices: []string{"Lima", "Cusco", "Quito", "La Paz"}, CorrectIndex: 0},
	}
}
