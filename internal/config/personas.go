package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Persona maps a client-selectable persona to an upstream prebuilt voice.
type Persona struct {
	ID          string `yaml:"id" json:"id"`
	Voice       string `yaml:"voice" json:"voice"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DefaultVoice is used when a start request names an unknown persona.
const DefaultVoice = "Kore"

func defaultPersonas() []Persona {
	return []Persona{
		{ID: "expert", Voice: "Orus", Description: "Measured, authoritative"},
		{ID: "sharp", Voice: "Fenrir", Description: "Fast, direct"},
		{ID: "warm", Voice: "Aoede", Description: "Friendly, encouraging"},
		{ID: "casual", Voice: "Kore", Description: "Relaxed, conversational"},
		{ID: "future", Voice: "Puck", Description: "Playful, energetic"},
		{ID: "minimal", Voice: "Zephyr", Description: "Quiet, concise"},
		{ID: "retro", Voice: "Charon", Description: "Deep, deliberate"},
		{ID: "creative", Voice: "Leda", Description: "Expressive, curious"},
	}
}

// PersonaCatalog resolves personas to voices. Immutable after load.
type PersonaCatalog struct {
	personas []Persona
	byID     map[string]Persona
}

// LoadPersonas builds the catalog from the built-in set, with entries from
// the optional YAML file replacing or extending it by persona id.
func LoadPersonas(path string) (*PersonaCatalog, error) {
	personas := defaultPersonas()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read persona file: %w", err)
		}
		var doc struct {
			Personas []Persona `yaml:"personas"`
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse persona file: %w", err)
		}
		for _, p := range doc.Personas {
			if p.ID == "" || p.Voice == "" {
				return nil, fmt.Errorf("persona file: entries need id and voice")
			}
			replaced := false
			for i := range personas {
				if personas[i].ID == p.ID {
					personas[i] = p
					replaced = true
					break
				}
			}
			if !replaced {
				personas = append(personas, p)
			}
		}
	}

	byID := make(map[string]Persona, len(personas))
	for _, p := range personas {
		byID[p.ID] = p
	}
	return &PersonaCatalog{personas: personas, byID: byID}, nil
}

// Voice returns the voice for a persona id, falling back to DefaultVoice.
func (c *PersonaCatalog) Voice(personaID string) string {
	if p, ok := c.byID[personaID]; ok {
		return p.Voice
	}
	return DefaultVoice
}

// All returns the catalog entries in declaration order.
func (c *PersonaCatalog) All() []Persona {
	out := make([]Persona, len(c.personas))
	copy(out, c.personas)
	return out
}
