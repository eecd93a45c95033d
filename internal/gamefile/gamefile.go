// Package gamefile reads question sets in the board file format:
//
//	{"game": {"single": [{"category": "...", "clues": [{"value": 200, "clue": "...", "solution": "..."}]}]}}
//
// The same structure is accepted as YAML.
package gamefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid game file")

type Format int

const (
	JSON Format = iota
	YAML
)

type file struct {
	Game struct {
		Single []category `json:"single" yaml:"single"`
	} `json:"game" yaml:"game"`
}

type category struct {
	Category string `json:"category" yaml:"category"`
	Clues    []clue `json:"clues" yaml:"clues"`
}

type clue struct {
	Value    int64  `json:"value" yaml:"value"`
	Clue     string `json:"clue" yaml:"clue"`
	Solution string `json:"solution" yaml:"solution"`
}

// FormatFor picks the format from a Content-Type header; anything that
// is not YAML is treated as JSON.
func FormatFor(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	switch strings.ToLower(mt) {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return YAML
	default:
		return JSON
	}
}

func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

func Parse(data []byte, format Format) ([]types.Category, error) {
	var f file
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return f.categories()
}

// Load reads a game file, choosing the format by extension.
func Load(path string) ([]types.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game file: %w", err)
	}
	return Parse(data, formatForPath(path))
}

func (f file) categories() ([]types.Category, error) {
	if len(f.Game.Single) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalid)
	}

	out := make([]types.Category, 0, len(f.Game.Single))
	for i, c := range f.Game.Single {
		title := strings.TrimSpace(c.Category)
		if title == "" {
			return nil, fmt.Errorf("%w: category %d has no title", ErrInvalid, i)
		}
		if len(c.Clues) == 0 {
			return nil, fmt.Errorf("%w: category %q has no clues", ErrInvalid, title)
		}

		qs := make([]types.Question, 0, len(c.Clues))
		for j, cl := range c.Clues {
			if cl.Value < 0 || cl.Value > int64(^uint32(0)>>1) {
				return nil, fmt.Errorf("%w: %q clue %d has value %d", ErrInvalid, title, j, cl.Value)
			}
			qs = append(qs, types.Question{
				Question: cl.Clue,
				Answer:   cl.Solution,
				Value:    uint32(cl.Value),
			})
		}
		out = append(out, types.Category{Title: title, Questions: qs})
	}
	return out, nil
}
