package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type setRow struct {
	ID         string        `gorm:"primaryKey;size:36"`
	Title      string        `gorm:"size:200;not null"`
	Categories []categoryRow `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time     `gorm:"not null;index"`
}

func (setRow) TableName() string { return "question_sets" }

type categoryRow struct {
	ID       uint      `gorm:"primaryKey"`
	SetID    string    `gorm:"size:36;not null;index"`
	Position int       `gorm:"not null"`
	Title    string    `gorm:"not null"`
	Clues    []clueRow `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (categoryRow) TableName() string { return "set_categories" }

type clueRow struct {
	ID         uint   `gorm:"primaryKey"`
	CategoryID uint   `gorm:"not null;index"`
	Position   int    `gorm:"not null"`
	Clue       string `gorm:"not null"`
	Solution   string `gorm:"not null"`
	Value      int64  `gorm:"not null"`
}

func (clueRow) TableName() string { return "set_clues" }

// GormStore keeps question sets in Postgres.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects to dsn and migrates the schema.
func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&setRow{}, &categoryRow{}, &clueRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, title string, categories []types.Category) (string, error) {
	row := setRow{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	for i, c := range categories {
		cr := categoryRow{Position: i, Title: c.Title}
		for j, q := range c.Questions {
			cr.Clues = append(cr.Clues, clueRow{
				Position: j,
				Clue:     q.Question,
				Solution: q.Answer,
				Value:    int64(q.Value),
			})
		}
		row.Categories = append(row.Categories, cr)
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("save question set: %w", err)
	}
	return row.ID, nil
}

func (s *GormStore) Load(ctx context.Context, id string) (QuestionSet, error) {
	var row setRow
	err := s.withClues(s.db.WithContext(ctx)).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return QuestionSet{}, ErrNotFound
	}
	if err != nil {
		return QuestionSet{}, fmt.Errorf("load question set: %w", err)
	}
	return QuestionSet{
		ID:         row.ID,
		Title:      row.Title,
		Categories: row.categories(),
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (s *GormStore) List(ctx context.Context) ([]Summary, error) {
	var rows []setRow
	err := s.withClues(s.db.WithContext(ctx)).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, summarize(r.ID, r.Title, r.categories(), r.CreatedAt))
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) withClues(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Categories.Clues", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (r setRow) categories() []types.Category {
	out := make([]types.Category, 0, len(r.Categories))
	for _, c := range r.Categories {
		qs := make([]types.Question, 0, len(c.Clues))
		for _, cl := range c.Clues {
			qs = append(qs, types.Question{Question: cl.Clue, Answer: cl.Solution, Value: uint32(cl.Value)})
		}
		out = append(out, types.Category{Title: c.Title, Questions: qs})
	}
	return out
}
