package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/stemsi/result-portal/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed exam_layout.yaml
var defaultLayout []byte

// LoadLayout reads the exam layout from path, or the built-in layout when path is empty.
// The result is not validated here; scoring.NewSubjectMap does that.
func LoadLayout(path string) (*model.ExamLayout, error) {
	raw := defaultLayout
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read exam layout: %w", err)
		}
		raw = b
	}
	return ParseLayout(raw)
}

// ParseLayout decodes a YAML exam layout.
func ParseLayout(raw []byte) (*model.ExamLayout, error) {
	var layout model.ExamLayout
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("parse exam layout: %w", err)
	}
	return &layout, nil
}
