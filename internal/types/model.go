package types

import (
	"encoding/json"
	"fmt"
)

type PlayerID uint32

type HeartbeatID uint32

// UnixMs is milliseconds since the unix epoch, or a delta thereof.
type UnixMs int64

type GameState string

const (
	StateStart           GameState = "Start"
	StateSelection       GameState = "Selection"
	StateQuestionReading GameState = "QuestionReading"
	StateWaitingForBuzz  GameState = "WaitingForBuzz"
	StateAnswer          GameState = "Answer"
	StateGameEnd         GameState = "GameEnd"
)

// QuestionOpen reports whether a question is on the board in this state.
func (s GameState) QuestionOpen() bool {
	switch s {
	case StateQuestionReading, StateWaitingForBuzz, StateAnswer:
		return true
	default:
		return false
	}
}

type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Value    uint32 `json:"value"`
	Answered bool   `json:"answered"`
}

type Category struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Player is the public part of a participant. Token is the reconnect secret
// and is only ever sent to its owner, inside NewPlayer.
type Player struct {
	PID    PlayerID `json:"pid"`
	Name   string   `json:"name"`
	Score  int32    `json:"score"`
	Buzzed bool     `json:"buzzed"`
	Token  string   `json:"-"`
}

// QuestionRef addresses a question on the board. It travels as a two
// element array: [categoryIndex, questionIndex].
type QuestionRef struct {
	Category int
	Question int
}

func (q QuestionRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{q.Category, q.Question})
}

func (q *QuestionRef) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("question ref: %w", err)
	}
	q.Category, q.Question = pair[0], pair[1]
	return nil
}

// CloneCategories deep-copies a board so snapshots never alias room state.
func CloneCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		out[i] = Category{Title: c.Title, Questions: append([]Question(nil), c.Questions...)}
	}
	return out
}
