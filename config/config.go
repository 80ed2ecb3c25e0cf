package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/flowstate"
)

// File is the TOML schema for a machine definition.
type File struct {
	// Initial is the starting state.
	Initial string `toml:"initial"`

	// States optionally declares states not reachable through transitions.
	States []string `toml:"states"`

	// Transitions are the rules, tried in file order.
	Transitions []Transition `toml:"transitions"`
}

// Transition is one declared rule.
type Transition struct {
	Event string `toml:"event"`
	From  string `toml:"from"`
	To    string `toml:"to"`
}

// ParseError wraps a TOML or validation failure with its source path.
type ParseError struct {
	// Path is the file the definition came from, or "<data>" for Parse.
	Path string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing definition %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads and parses a definition file.
func Load(path string) (*flowstate.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition %s: %w", path, err)
	}
	return parse(path, data)
}

// Parse builds a definition from raw TOML.
func Parse(data []byte) (*flowstate.Definition, error) {
	return parse("<data>", data)
}

func parse(path string, data []byte) (*flowstate.Definition, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	def := flowstate.NewDefinition().Initial(f.Initial)
	def.State(f.States...)
	for _, t := range f.Transitions {
		def.Transition(t.Event, t.From, t.To)
	}

	// Validate here so a broken file fails at load time, not at machine
	// construction after a live reload.
	if err := def.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return def, nil
}
