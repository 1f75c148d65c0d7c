package question

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"quiz-room-service/internal/domain"
)

func TestMathSourceShape(t *testing.T) {
	src := NewMathSourceWithSeed(42)
	spec := domain.QuizSpec{
		Mode:                domain.ModeMath,
		NumQuestions:        50,
		MathOps:             []string{"add", "div"},
		MinValue:            1,
		MaxValue:            99,
		DivisionIntegerOnly: true,
	}
	questions, err := src.Questions(context.Background(), spec)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 50 {
		t.Fatalf("expected 50 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if len(q.Choices) != 4 {
			t.Fatalf("question %d: expected 4 choices, got %d", i, len(q.Choices))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			t.Fatalf("question %d: correct index %d out of range", i, q.CorrectIndex)
		}
		seen := map[string]bool{}
		for _, c := range q.Choices {
			if seen[c] {
				t.Fatalf("question %d: duplicate choice %q in %v", i, c, q.Choices)
			}
			seen[c] = true
		}
	}
}

func TestMathSourceAnswersAreRight(t *testing.T) {
	src := NewMathSourceWithSeed(7)
	spec := domain.QuizSpec{
		Mode:                domain.ModeMath,
		NumQuestions:        30,
		MathOps:             []string{"add", "div"},
		MinValue:            1,
		MaxValue:            50,
		DivisionIntegerOnly: true,
	}
	questions, err := src.Questions(context.Background(), spec)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, q := range questions {
		var a, b int
		var want int
		if _, err := fmt.Sscanf(q.Prompt, "%d + %d = ?", &a, &b); err == nil {
			want = a + b
		} else if _, err := fmt.Sscanf(q.Prompt, "%d ÷ %d = ?", &a, &b); err == nil {
			if b == 0 || a%b != 0 {
				t.Fatalf("question %d: %q is not integer division", i, q.Prompt)
			}
			want = a / b
		} else {
			t.Fatalf("question %d: unrecognized prompt %q", i, q.Prompt)
		}
		got, err := strconv.Atoi(q.Choices[q.CorrectIndex])
		if err != nil || got != want {
			t.Fatalf("question %d (%q): marked answer %q, want %d", i, q.Prompt, q.Choices[q.CorrectIndex], want)
		}
	}
}

func TestMathSourceDefaultsInvalidOps(t *testing.T) {
	src := NewMathSourceWithSeed(1)
	spec := domain.QuizSpec{
		Mode:         domain.ModeMath,
		NumQuestions: 5,
		MathOps:      []string{"mul", "sub"},
		MinValue:     1,
		MaxValue:     20,
	}
	questions, err := src.Questions(context.Background(), spec)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 5 {
		t.Fatalf("expected fallback ops to still yield 5 questions, got %d", len(questions))
	}
}
