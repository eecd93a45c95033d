// Package store keeps the question-set library rooms can be seeded from.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
)

var ErrNotFound = errors.New("question set not found")

type QuestionSet struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Categories []types.Category `json:"categories"`
	CreatedAt  time.Time        `json:"created_at"`
}

type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Categories int       `json:"categories"`
	Questions  int       `json:"questions"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store interface {
	Save(ctx context.Context, title string, categories []types.Category) (string, error)
	Load(ctx context.Context, id string) (QuestionSet, error)
	// List returns every set, newest first.
	List(ctx context.Context) ([]Summary, error)
	Close() error
}

func summarize(id, title string, categories []types.Category, created time.Time) Summary {
	s := Summary{ID: id, Title: title, Categories: len(categories), CreatedAt: created}
	for _, c := range categories {
		s.Questions += len(c.Questions)
	}
	return s
}
