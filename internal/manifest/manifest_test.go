package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/series"
)

const sample = `
dumbbell:
  tcp:
    heavy:
      budget: [0, 1, 2]
      backlog: [0, 1]
    light:
      backlog: [3]
  dctcp:
    heavy:
      budget: []
`

func TestParseAndLookup(t *testing.T) {
	m, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sel := series.Selection{Scenario: "dumbbell", Protocol: "tcp", Load: "heavy"}
	if got := m.Hosts(sel, series.ScalarBudget); len(got) != 3 {
		t.Errorf("Hosts(budget) = %v, want 3 entries", got)
	}
	if got := m.Hosts(sel, series.ScalarBacklog); len(got) != 2 {
		t.Errorf("Hosts(backlog) = %v, want 2 entries", got)
	}

	if !m.Has(sel, series.ScalarBudget, 2) {
		t.Error("Has(budget, 2) = false")
	}
	if m.Has(sel, series.ScalarBudget, 3) {
		t.Error("Has(budget, 3) = true")
	}

	// Unknown selections are simply empty, never errors.
	unknown := series.Selection{Scenario: "star", Protocol: "tcp", Load: "heavy"}
	if got := m.Hosts(unknown, series.ScalarBudget); got != nil {
		t.Errorf("Hosts(unknown scenario) = %v, want nil", got)
	}
	unknown = series.Selection{Scenario: "dumbbell", Protocol: "quic", Load: "heavy"}
	if got := m.Hosts(unknown, series.ScalarBudget); got != nil {
		t.Errorf("Hosts(unknown protocol) = %v, want nil", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "negative host index",
			input: "s:\n  p:\n    l:\n      budget: [-1]\n",
		},
		{
			name:  "not yaml",
			input: "{{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("Parse accepted an invalid manifest")
			}
			if !errors.Is(err, errors.ErrInvalidManifest) {
				t.Errorf("error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestEmpty(t *testing.T) {
	m := Empty()
	sel := series.Selection{Scenario: "s", Protocol: "p", Load: "l"}
	if got := m.Hosts(sel, series.ScalarBudget); got != nil {
		t.Errorf("Empty().Hosts = %v, want nil", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	sel := series.Selection{Scenario: "dumbbell", Protocol: "tcp", Load: "light"}
	if !m.Has(sel, series.ScalarBacklog, 3) {
		t.Error("loaded manifest lost an entry")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile accepted a missing file")
	}
}
