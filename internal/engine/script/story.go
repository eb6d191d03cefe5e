package script

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Story is a parsed story file.
//
// A story is a set of named locations the player moves between. The
// optional story-level scripts handle the periodic counter (tick),
// typed user input (on-input, the text is in the input variable) and
// object selection (on-object, the name is in the selobj variable).
type Story struct {
	Title    string                 `yaml:"title"`
	Start    string                 `yaml:"start"`
	Status   string                 `yaml:"status"`
	Tick     string                 `yaml:"tick"`
	OnInput  string                 `yaml:"on-input"`
	OnObject string                 `yaml:"on-object"`
	Vars     map[string]any         `yaml:"vars"`
	Icons    map[string]string      `yaml:"icons"`
	Menus    map[string][]MenuEntry `yaml:"menus"`

	Locations []Location `yaml:"locations"`

	index map[string]*Location
}

// Location is one place in the story. Its script runs every time the
// player enters. A per-location tick overrides the story-level one.
type Location struct {
	Name    string   `yaml:"name"`
	Desc    string   `yaml:"desc"`
	Script  string   `yaml:"script"`
	Tick    string   `yaml:"tick"`
	Actions []Action `yaml:"actions"`
}

// Action is one choice offered at a location. When If names a
// variable, the action is shown only while that variable is set.
type Action struct {
	Text   string `yaml:"text"`
	Icon   string `yaml:"icon"`
	If     string `yaml:"if"`
	Script string `yaml:"script"`
}

// MenuEntry is one row of a named popup menu.
type MenuEntry struct {
	Text   string `yaml:"text"`
	Icon   string `yaml:"icon"`
	Script string `yaml:"script"`
}

// ParseStory parses and validates a story file.
func ParseStory(data []byte) (*Story, error) {
	var s Story
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("script: cannot parse story: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Story) validate() error {
	if len(s.Locations) == 0 {
		return fmt.Errorf("script: story has no locations")
	}
	if s.Start == "" {
		return fmt.Errorf("script: story has no start location")
	}

	s.index = make(map[string]*Location, len(s.Locations))
	for i := range s.Locations {
		loc := &s.Locations[i]
		if loc.Name == "" {
			return fmt.Errorf("script: location %d has no name", i)
		}
		if _, dup := s.index[loc.Name]; dup {
			return fmt.Errorf("script: duplicate location %q", loc.Name)
		}
		s.index[loc.Name] = loc
	}

	if s.location(s.Start) == nil {
		return fmt.Errorf("script: start location %q not defined", s.Start)
	}
	if s.Title == "" {
		s.Title = s.Start
	}

	return nil
}

func (s *Story) location(name string) *Location {
	return s.index[strings.TrimSpace(name)]
}
