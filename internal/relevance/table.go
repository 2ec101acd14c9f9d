package relevance

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/goccy/go-yaml"
)

//go:embed roads.yaml
var defaultTable []byte

// StateRecord names a state known to the road table
type StateRecord struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// RoadRecord is the road joining two neighbouring states
type RoadRecord struct {
	States []string `yaml:"states"`
	Name   string   `yaml:"name"`
	Terms  []string `yaml:"terms"`
}

// Table is the static state/road reference data
type Table struct {
	States []StateRecord `yaml:"states"`
	Roads  []RoadRecord  `yaml:"roads"`
}

// ParseTable decodes and validates a YAML road table
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse road table: %w", err)
	}
	for i, r := range t.Roads {
		if len(r.States) != 2 {
			return nil, fmt.Errorf("road %d (%s): want 2 states, got %d", i, r.Name, len(r.States))
		}
		if r.Name == "" {
			return nil, fmt.Errorf("road %d: empty name", i)
		}
	}
	for i, s := range t.States {
		if Normalize(s.ID) == "" {
			return nil, fmt.Errorf("state %d: empty id", i)
		}
	}
	return &t, nil
}

// pairKey keys a state pair: both ids normalized, sorted, hyphen-joined
func pairKey(a, b string) string {
	ids := []string{Normalize(a), Normalize(b)}
	sort.Strings(ids)
	return ids[0] + "-" + ids[1]
}
