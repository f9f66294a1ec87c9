// Package manifest provides the availability manifest: a static, read-only
// mapping describing which hosts are known to have a given scalar metric
// under a given selection.
//
// The loader consults it before issuing a host scalar request, so no fetch
// is spent on a host known to lack data. An empty or missing entry simply
// means no host has that metric for that selection.
package manifest

import (
	"os"

	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/series"
	"gopkg.in/yaml.v3"
)

// Manifest maps scenario → protocol → load → scalar kind → host indices.
type Manifest struct {
	scenarios map[string]map[string]map[string]map[series.ScalarKind][]int
}

// Parse parses a YAML manifest document.
//
// Shape:
//
//	dumbbell:
//	  tcp:
//	    heavy:
//	      budget: [0, 1, 2]
//	      backlog: [0, 1]
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]map[string]map[string]map[series.ScalarKind][]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidManifest, err.Error())
	}

	for _, protocols := range raw {
		for _, loads := range protocols {
			for _, kinds := range loads {
				for kind, hosts := range kinds {
					if kind == "" {
						return nil, errors.Wrap(errors.ErrInvalidManifest, "empty scalar kind")
					}
					for _, h := range hosts {
						if h < 0 {
							return nil, errors.Wrapf(errors.ErrInvalidManifest,
								"kind %s: negative host index %d", kind, h)
						}
					}
				}
			}
		}
	}

	return &Manifest{scenarios: raw}, nil
}

// LoadFile reads and parses a manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	return Parse(data)
}

// Empty returns a manifest with no entries. Every lookup against it is
// empty, so no optional series are ever requested.
func Empty() *Manifest {
	return &Manifest{scenarios: map[string]map[string]map[string]map[series.ScalarKind][]int{}}
}

// Hosts returns the host indices known to have the given scalar kind under
// the given selection. The returned slice is shared and must not be
// mutated.
func (m *Manifest) Hosts(sel series.Selection, kind series.ScalarKind) []int {
	protocols, ok := m.scenarios[sel.Scenario]
	if !ok {
		return nil
	}
	loads, ok := protocols[sel.Protocol]
	if !ok {
		return nil
	}
	kinds, ok := loads[sel.Load]
	if !ok {
		return nil
	}
	return kinds[kind]
}

// Has reports whether the manifest lists host for (selection, kind).
func (m *Manifest) Has(sel series.Selection, kind series.ScalarKind, host int) bool {
	for _, h := range m.Hosts(sel, kind) {
		if h == host {
			return true
		}
	}
	return false
}
