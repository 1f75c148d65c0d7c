package domain

import "time"

// QuizMode selects how a room's questions are produced.
type QuizMode string

const (
	ModeTopicAI QuizMode = "topic_ai"
	ModeMath    QuizMode = "math"
)

// QuizSpec is the immutable room configuration supplied at creation.
type QuizSpec struct {
	Mode  QuizMode `json:"mode"`
	Topic string   `json:"topic,omitempty"`

	NumQuestions       int `json:"num_questions"`
	TimePerQuestionSec int `json:"time_per_question_sec"`

	// Math mode parameters.
	MathOps             []string `json:"math_ops,omitempty"`
	MinValue            int      `json:"min_value"`
	MaxValue            int      `json:"max_value"`
	DivisionIntegerOnly bool     `json:"division_integer_only"`
}

// QuestionDuration returns the per-question time window.
func (s QuizSpec) QuestionDuration() time.Duration {
	return time.Duration(s.TimePerQuestionSec) * time.Second
}

// Question is a single multiple-choice question with one correct choice.
type Question struct {
	Prompt       string   `json:"question"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
}

// RoomStatus is the room lifecycle state; it only ever moves forward.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusEnded      RoomStatus = "ended"
)

// MaxPlayers is the hard per-room participant cap.
const MaxPlayers = 2

// PlayerSummary is a snapshot-friendly view of one participant.
type PlayerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Ready bool   `json:"ready"`
}

// RoomState is the full observable snapshot broadcast to clients.
type RoomState struct {
	ID                   string          `json:"id"`
	Spec                 QuizSpec        `json:"spec"`
	Status               RoomStatus      `json:"status"`
	HostID               string          `json:"host_id"`
	Players              []PlayerSummary `json:"players"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	TotalQuestions       int             `json:"total_questions"`
	QuestionExpiresAt    *string         `json:"question_expires_at"`
	CreatedAt            string          `json:"created_at"`
	StartedAt            *string         `json:"started_at"`
	EndedAt              *string         `json:"ended_at"`
	ReadyCount           int             `json:"ready_count"`
	MaxPlayers           int             `json:"max_players"`
}

// ScoreEntry is one scoreboard row, emitted in player join order.
type ScoreEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// Event is the discriminated envelope for everything sent to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// QuestionEvent announces the currently open question.
type QuestionEvent struct {
	Index     int      `json:"index"`
	Question  string   `json:"question"`
	Choices   []string `json:"choices"`
	ExpiresAt string   `json:"expires_at"`
}

// AnswerResultEvent covers every way a question resolves: a per-player
// verdict, a timeout, or the all-answered reveal.
type AnswerResultEvent struct {
	Index        int          `json:"index"`
	PlayerID     string       `json:"player_id,omitempty"`
	Correct      *bool        `json:"correct,omitempty"`
	CorrectIndex *int         `json:"correct_index,omitempty"`
	Result       string       `json:"result,omitempty"`
	Scoreboard   []ScoreEntry `json:"scoreboard,omitempty"`
}

// EndEvent is the terminal broadcast with the final scoreboard.
type EndEvent struct {
	State      RoomState    `json:"state"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

// GameResult is the record handed to the result store once a room ends.
type GameResult struct {
	RoomID     string       `json:"room_id"`
	Mode       QuizMode     `json:"mode"`
	Topic      string       `json:"topic,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

// ISOTime renders a timestamp as RFC 3339 UTC with a literal Z suffix.
func ISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ISOTimePtr is ISOTime for nullable timestamps; zero times map to nil.
func ISOTimePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := ISOTime(t)
	return &s
}
