// Package script reads edit scripts: ordered lists of timeline requests
// written in TOML or YAML, replayed against a model by a Runner.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrFormat     = errors.New("unsupported script format")
	ErrUnknownOp  = errors.New("unknown operation")
	ErrUnknownRef = errors.New("unknown reference")
	ErrUnexpected = errors.New("unexpected outcome")
)

// Expectations of a step outcome.
const (
	ExpectOK   = "ok"
	ExpectFail = "fail"
)

// Script is a named sequence of steps.
type Script struct {
	Name   string `toml:"name" yaml:"name"`
	Tracks int    `toml:"tracks" yaml:"tracks"`
	Steps  []Step `toml:"step" yaml:"steps"`
}

// Step is one request. Item and Track refer to an alias set by an earlier
// step's As, or to a numeric id. Lane selects a track by its position
// instead of by reference.
type Step struct {
	Op         string   `toml:"op" yaml:"op"`
	As         string   `toml:"as" yaml:"as"`
	Item       string   `toml:"item" yaml:"item"`
	Items      []string `toml:"items" yaml:"items"`
	Track      string   `toml:"track" yaml:"track"`
	Lane       *int     `toml:"lane" yaml:"lane"`
	Source     string   `toml:"source" yaml:"source"`
	Kind       string   `toml:"kind" yaml:"kind"`
	Position   int      `toml:"position" yaml:"position"`
	Length     int      `toml:"length" yaml:"length"`
	Size       int      `toml:"size" yaml:"size"`
	Delta      int      `toml:"delta" yaml:"delta"`
	DeltaTrack int      `toml:"delta_track" yaml:"delta_track"`
	Right      bool     `toml:"right" yaml:"right"`
	Snap       bool     `toml:"snap" yaml:"snap"`
	Expect     string   `toml:"expect" yaml:"expect"`
	Want       *int     `toml:"want" yaml:"want"`
}

// Load reads a script, choosing the decoder from the file extension.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes a script in the given format (toml, yaml or yml).
func Parse(data []byte, format string) (*Script, error) {
	s := &Script{}
	switch strings.ToLower(format) {
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(s); err != nil {
			return nil, fmt.Errorf("failed to parse toml script: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("failed to parse yaml script: %w", err)
		}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrFormat)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var knownOps = map[string]bool{
	"track_insert": true, "track_delete": true,
	"clip_insert": true, "composition_insert": true,
	"move": true, "suggest_move": true, "group_move": true,
	"resize": true, "trim": true, "cut": true,
	"delete": true, "delete_group": true,
	"group": true, "ungroup": true,
	"undo": true, "redo": true, "reset": true, "check": true,
}

// Validate checks operations and expectations without touching a model.
func (s *Script) Validate() error {
	if s.Tracks < 0 {
		return fmt.Errorf("tracks cannot be negative")
	}
	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("step %d: %q: %w", i+1, step.Op, ErrUnknownOp)
		}
		switch step.Expect {
		case "", ExpectOK, ExpectFail:
		default:
			return fmt.Errorf("step %d: invalid expect %q (must be ok or fail)", i+1, step.Expect)
		}
	}
	return nil
}
