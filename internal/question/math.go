package question

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"quiz-room-service/internal/domain"
)

// MathSource procedurally generates arithmetic multiple-choice questions.
// Supported operators are addition and division; division builds divisible
// pairs when the spec demands integer results.
type MathSource struct {
	rnd *rand.Rand
}

func NewMathSource() *MathSource {
	return &MathSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewMathSourceWithSeed is test-only for deterministic questions.
func NewMathSourceWithSeed(seed int64) *MathSource {
	return &MathSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *MathSource) Questions(_ context.Context, spec domain.QuizSpec) ([]domain.Question, error) {
	ops := make([]string, 0, len(spec.MathOps))
	for _, op := range spec.MathOps {
		if op == "add" || op == "div" {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		ops = []string{"add", "div"}
	}

	minV, maxV := spec.MinValue, spec.MaxValue
	if minV < 1 {
		minV = 1
	}
	if maxV <= minV {
		maxV = minV + 1
	}

	n := spec.NumQuestions
	if n < 1 {
		n = 1
	}
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		var q domain.Question
		if ops[s.rnd.Intn(len(ops))] == "add" {
			q = s.genAdd(minV, maxV)
		} else {
			q = s.genDiv(minV, maxV, spec.DivisionIntegerOnly)
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *MathSource) genAdd(minV, maxV int) domain.Question {
	a := s.randInt(minV, maxV)
	b := s.randInt(minV, maxV)
	ans := a + b
	prompt := fmt.Sprintf("%d + %d = ?", a, b)
	return s.buildChoices(prompt, strconv.Itoa(ans), func(d int) string {
		return strconv.Itoa(ans + d)
	})
}

func (s *MathSource) genDiv(minV, maxV int, integerOnly bool) domain.Question {
	b := s.randInt(max(minV, 1), maxV)
	if integerOnly {
		hi := maxV / max(b, 1)
		if hi < minV {
			hi = minV
		}
		ans := s.randInt(minV, hi)
		if ans == 0 {
			ans = 1
		}
		a := ans * b
		prompt := fmt.Sprintf("%d ÷ %d = ?", a, b)
		return s.buildChoices(prompt, strconv.Itoa(ans), func(d int) string {
			return strconv.Itoa(ans + d)
		})
	}
	a := s.randInt(minV, maxV)
	ans := float64(a) / float64(b)
	prompt := fmt.Sprintf("%d ÷ %d = ?", a, b)
	return s.buildChoices(prompt, formatFloat(ans), func(d int) string {
		return formatFloat(ans + float64(d))
	})
}

// buildChoices assembles four shuffled options: the correct answer plus
// three distinct distractors near it.
func (s *MathSource) buildChoices(prompt, correct string, near func(delta int) string) domain.Question {
	seen := map[string]bool{correct: true}
	distractors := make([]string, 0, 3)
	for _, d := range []int{-2, -1, 1, 2} {
		if v := near(d); !seen[v] {
			seen[v] = true
			distractors = append(distractors, v)
		}
	}
	for len(distractors) < 3 {
		v := near(s.randInt(-10, 10))
		if !seen[v] {
			seen[v] = true
			distractors = append(distractors, v)
		}
	}
	choices := append([]string{correct}, distractors[:3]...)
	s.rnd.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	correctIdx := 0
	for i, c := range choices {
		if c == correct {
			correctIdx = i
			break
		}
	}
	return domain.Question{Prompt: prompt, Choices: choices, CorrectIndex: correctIdx}
}

func (s *MathSource) randInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rnd.Intn(hi-lo+1)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
