// Package layout describes which sections the home page shows and in what
// order.
package layout

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind names a home page section.
type Kind string

const (
	KindHero               Kind = "hero"
	KindCategoryCarousel   Kind = "category_carousel"
	KindBentoGrid          Kind = "bento_grid"
	KindInspirationGallery Kind = "inspiration_gallery"
	KindBrands             Kind = "brands"
)

var knownKinds = map[Kind]bool{
	KindHero:               true,
	KindCategoryCarousel:   true,
	KindBentoGrid:          true,
	KindInspirationGallery: true,
	KindBrands:             true,
}

// Section is one block of the home page. Categories optionally pins the
// category ids a carousel or grid shows; empty means the top-level ones.
type Section struct {
	Kind       Kind     `yaml:"kind" json:"kind"`
	Title      string   `yaml:"title" json:"title"`
	Subtitle   string   `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Limit      int      `yaml:"limit" json:"limit"`
	Categories []string `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// Layout is the ordered list of home sections.
type Layout struct {
	Sections []Section `yaml:"sections" json:"sections"`
}

//go:embed default.yaml
var defaultLayout []byte

// Default returns the built-in layout.
func Default() *Layout {
	l, err := Parse(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("layout: embedded default is invalid: %v", err))
	}
	return l
}

// Load reads the layout from path, or returns Default when path is empty.
func Load(path string) (*Layout, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: failed to read %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("layout: %s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a YAML layout.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks every section has a known kind and a positive limit.
func (l *Layout) Validate() error {
	if len(l.Sections) == 0 {
		return fmt.Errorf("layout has no sections")
	}
	for i, s := range l.Sections {
		if !knownKinds[s.Kind] {
			return fmt.Errorf("section %d: unknown kind %q", i, s.Kind)
		}
		if s.Limit <= 0 {
			return fmt.Errorf("section %d (%s): limit must be positive", i, s.Kind)
		}
	}
	return nil
}
