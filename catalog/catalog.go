// Package catalog documents the closed set of webhook event types and
// validates event data against each type's JSON Schema.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/posthoot/sailhook/event"
)

//go:embed events.yaml
var eventsYAML []byte

var (
	// ErrUnknownEventType is returned for a type with no definition.
	ErrUnknownEventType = errors.New("sailhook/catalog: unknown event type")

	// ErrInvalidPayload wraps schema violations found by Validate.
	ErrInvalidPayload = errors.New("sailhook/catalog: payload does not match schema")
)

// Catalog holds one Definition per event type. It is immutable after Load
// and safe for concurrent use.
type Catalog struct {
	defs      map[event.Type]*Definition
	validator *Validator
}

type yamlDefinition struct {
	Type        event.Type `yaml:"type"`
	Group       string     `yaml:"group"`
	Description string     `yaml:"description"`
	Schema      any        `yaml:"schema"`
	Example     any        `yaml:"example"`
}

// Load parses the embedded catalog. It fails if a type is listed twice or if
// any member of event.All has no definition.
func Load() (*Catalog, error) {
	return Parse(eventsYAML)
}

// MustLoad is like Load but panics. The embedded catalog is covered by
// tests, so a failure here is a build defect.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from YAML source.
func Parse(src []byte) (*Catalog, error) {
	var raw []yamlDefinition
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("sailhook/catalog: parse: %w", err)
	}

	c := &Catalog{
		defs:      make(map[event.Type]*Definition, len(raw)),
		validator: NewValidator(),
	}
	for _, r := range raw {
		if _, dup := c.defs[r.Type]; dup {
			return nil, fmt.Errorf("sailhook/catalog: duplicate definition for %s", r.Type)
		}
		def := &Definition{Type: r.Type, Group: r.Group, Description: r.Description}

		var err error
		if def.Schema, err = toJSON(r.Schema); err != nil {
			return nil, fmt.Errorf("sailhook/catalog: %s schema: %w", r.Type, err)
		}
		if def.Example, err = toJSON(r.Example); err != nil {
			return nil, fmt.Errorf("sailhook/catalog: %s example: %w", r.Type, err)
		}
		c.defs[r.Type] = def
	}

	for _, t := range event.All() {
		if _, ok := c.defs[t]; !ok {
			return nil, fmt.Errorf("sailhook/catalog: no definition for %s", t)
		}
	}
	return c, nil
}

func toJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Get returns the definition for t.
func (c *Catalog) Get(t event.Type) (*Definition, error) {
	def, ok := c.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, t)
	}
	return def, nil
}

// List returns every definition in event.All order.
func (c *Catalog) List() []*Definition {
	out := make([]*Definition, 0, len(c.defs))
	for _, t := range event.All() {
		out = append(out, c.defs[t])
	}
	return out
}

// Example returns the example data for t.
func (c *Catalog) Example(t event.Type) (json.RawMessage, error) {
	def, err := c.Get(t)
	if err != nil {
		return nil, err
	}
	return def.Example, nil
}

// Validate checks data against the schema registered for t. Types without a
// schema accept any JSON value.
func (c *Catalog) Validate(t event.Type, data json.RawMessage) error {
	def, err := c.Get(t)
	if err != nil {
		return err
	}
	if err := c.validator.Validate(def.Schema, data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, t, err)
	}
	return nil
}
