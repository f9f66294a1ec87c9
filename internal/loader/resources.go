// Package loader orchestrates selection loads: it fans out the concurrent
// fetches one selection needs, aligns every resolved series against a
// single deterministic grid, and commits the assembled store as a sampling
// engine.
//
// LOCATION: internal/loader/resources.go
//
// This file defines the resource addressing scheme. Every telemetry
// resource lives under data/<scenario>/<protocol>/<load>/:
//
//	<from>_to_<to>.csv       one link direction (timestamp, throughput, queueDepth)
//	<kind>_host<N>.csv       one host scalar series (timestamp, value)
package loader

import (
	"fmt"
	"path"

	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/topology"
)

// LinkResource returns the relative path of one link direction resource.
func LinkResource(sel series.Selection, link topology.Link, forward bool) string {
	name := link.ForwardName()
	if !forward {
		name = link.ReverseName()
	}
	return resourcePath(sel, name+".csv")
}

// ScalarResource returns the relative path of one host scalar resource.
func ScalarResource(sel series.Selection, kind series.ScalarKind, host int) string {
	return resourcePath(sel, fmt.Sprintf("%s_host%d.csv", kind, host))
}

func resourcePath(sel series.Selection, name string) string {
	return path.Join("data", sel.Scenario, sel.Protocol, sel.Load, name)
}
