package report

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"usage-report/internal/domain"
)

// tablePlaceholder is replaced with the resolved table name when a custom
// section runs.
const tablePlaceholder = "{{table}}"

// Section is a custom report section defined in YAML. SQL references the
// usage table via the {{table}} placeholder.
type Section struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	SQL   string `yaml:"sql"`
}

type sectionsFile struct {
	Sections []Section `yaml:"sections"`
}

// LoadSections parses custom section definitions. Names must be unique and
// every section needs a non-empty SQL body.
func LoadSections(data []byte) ([]Section, error) {
	var file sectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sections: %w", err)
	}

	seen := make(map[string]bool, len(file.Sections))
	for i := range file.Sections {
		sec := &file.Sections[i]
		sec.Name = strings.TrimSpace(sec.Name)
		if sec.Name == "" {
			return nil, domain.ErrValidation("section %d has no name", i)
		}
		if seen[sec.Name] {
			return nil, domain.ErrValidation("duplicate section name %q", sec.Name)
		}
		seen[sec.Name] = true
		if strings.TrimSpace(sec.SQL) == "" {
			return nil, domain.ErrValidation("section %q has no sql", sec.Name)
		}
		if sec.Title == "" {
			sec.Title = sec.Name
		}
	}
	return file.Sections, nil
}

// Sections lists the installed custom sections.
func (s *Service) Sections() []Section {
	return s.sections
}

// Custom runs the named custom section and returns its raw result table.
func (s *Service) Custom(ctx context.Context, name string) (*domain.ResultTable, error) {
	for _, sec := range s.sections {
		if sec.Name != name {
			continue
		}
		tableName, err := s.tableName(ctx)
		if err != nil {
			return nil, err
		}
		sql := strings.ReplaceAll(sec.SQL, tablePlaceholder, tableName)
		return s.fetch(ctx, sql)
	}
	return nil, domain.ErrValidation("unknown report section %q", name)
}
