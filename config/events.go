package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"ignitia/internal/domain"
)

//go:embed events.yaml
var eventsYAML []byte

type eventCatalog struct {
	Events []domain.Event `yaml:"events"`
}

// LoadEvents returns the embedded event catalog.
func LoadEvents() ([]domain.Event, error) {
	return parseEvents(eventsYAML)
}

// parseEvents decodes a catalog and checks that it has exactly one entry per registration slot,
// in code order.
func parseEvents(data []byte) ([]domain.Event, error) {
	var c eventCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode event catalog: %w", err)
	}
	if len(c.Events) != domain.NumEvents {
		return nil, fmt.Errorf("event catalog has %d events, want %d", len(c.Events), domain.NumEvents)
	}
	for i, e := range c.Events {
		if e.Code != domain.EventCode(i) {
			return nil, fmt.Errorf("event %q has code %d, want %d", e.Slug, e.Code, i)
		}
	}
	return c.Events, nil
}
