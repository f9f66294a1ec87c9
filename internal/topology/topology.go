// Package topology loads the network layout the sampling engine aggregates
// over: hosts, switches, and the links between them.
//
// Layout geometry (positions, rendering) is a renderer concern and is not
// represented here; the engine only needs node identity and link incidence.
package topology

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flowscope/flowscope/internal/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Node References
// =============================================================================

// NodeKind distinguishes hosts from switches.
type NodeKind string

const (
	KindHost   NodeKind = "host"
	KindSwitch NodeKind = "switch"
)

// NodeRef identifies one node by kind and index, e.g. host3 or switch0.
type NodeRef struct {
	Kind  NodeKind
	Index int
}

// String returns the canonical name, e.g. "host3".
func (r NodeRef) String() string {
	return string(r.Kind) + strconv.Itoa(r.Index)
}

// ParseNodeRef parses a canonical node name like "host3" or "switch0".
func ParseNodeRef(s string) (NodeRef, error) {
	for _, kind := range []NodeKind{KindHost, KindSwitch} {
		rest, ok := strings.CutPrefix(s, string(kind))
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(rest)
		if err != nil || idx < 0 {
			return NodeRef{}, errors.Wrapf(errors.ErrInvalidTopology, "node %q: bad index", s)
		}
		return NodeRef{Kind: kind, Index: idx}, nil
	}
	return NodeRef{}, errors.Wrapf(errors.ErrInvalidTopology, "node %q: unknown kind", s)
}

// =============================================================================
// Links
// =============================================================================

// Link is one bidirectional edge. The forward direction carries traffic
// From → To; the reverse direction To → From.
type Link struct {
	From NodeRef
	To   NodeRef
}

// Name returns the canonical name of the link, e.g. "host0_to_switch0".
// It doubles as the forward direction's resource name.
func (l Link) Name() string {
	return l.From.String() + "_to_" + l.To.String()
}

// ForwardName returns the resource name of the From → To direction.
func (l Link) ForwardName() string { return l.Name() }

// ReverseName returns the resource name of the To → From direction.
func (l Link) ReverseName() string {
	return l.To.String() + "_to_" + l.From.String()
}

// Facing returns which direction of the link faces the given node: true for
// forward (the node is the To endpoint), false for reverse. The second
// return is false when the link is not incident to the node.
func (l Link) Facing(n NodeRef) (forward, incident bool) {
	switch n {
	case l.To:
		return true, true
	case l.From:
		return false, true
	default:
		return false, false
	}
}

// =============================================================================
// Layout
// =============================================================================

// Layout is the read-only topology one selection is rendered against. Node
// and link order is the program order every load and snapshot follows.
type Layout struct {
	Nodes []NodeRef
	Links []Link

	nodeIndex map[NodeRef]int
}

// yamlLayout is the on-disk shape.
type yamlLayout struct {
	Hosts    int        `yaml:"hosts"`
	Switches int        `yaml:"switches"`
	Links    []yamlLink `yaml:"links"`
}

type yamlLink struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Parse parses a YAML layout document.
//
// Nodes are declared by count (hosts: 4, switches: 1) and named host0..N-1,
// switch0..M-1; links reference those names.
func Parse(data []byte) (*Layout, error) {
	var raw yamlLayout
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidTopology, err.Error())
	}

	if raw.Hosts < 0 || raw.Switches < 0 {
		return nil, errors.Wrap(errors.ErrInvalidTopology, "negative node count")
	}

	l := &Layout{nodeIndex: make(map[NodeRef]int)}
	for i := 0; i < raw.Hosts; i++ {
		l.addNode(NodeRef{Kind: KindHost, Index: i})
	}
	for i := 0; i < raw.Switches; i++ {
		l.addNode(NodeRef{Kind: KindSwitch, Index: i})
	}

	for i, yl := range raw.Links {
		from, err := ParseNodeRef(yl.From)
		if err != nil {
			return nil, errors.Wrapf(err, "links[%d].from", i)
		}
		to, err := ParseNodeRef(yl.To)
		if err != nil {
			return nil, errors.Wrapf(err, "links[%d].to", i)
		}
		if _, ok := l.nodeIndex[from]; !ok {
			return nil, errors.Wrapf(errors.ErrInvalidTopology, "links[%d]: undeclared node %s", i, from)
		}
		if _, ok := l.nodeIndex[to]; !ok {
			return nil, errors.Wrapf(errors.ErrInvalidTopology, "links[%d]: undeclared node %s", i, to)
		}
		if from == to {
			return nil, errors.Wrapf(errors.ErrInvalidTopology, "links[%d]: self-loop on %s", i, from)
		}
		l.Links = append(l.Links, Link{From: from, To: to})
	}

	return l, nil
}

// LoadFile reads and parses a layout file.
func LoadFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	return Parse(data)
}

func (l *Layout) addNode(n NodeRef) {
	l.nodeIndex[n] = len(l.Nodes)
	l.Nodes = append(l.Nodes, n)
}

// NodeIndex returns the index of n in Nodes, or -1 when absent.
func (l *Layout) NodeIndex(n NodeRef) int {
	if i, ok := l.nodeIndex[n]; ok {
		return i
	}
	return -1
}

// Hosts returns the host nodes in program order.
func (l *Layout) Hosts() []NodeRef {
	var out []NodeRef
	for _, n := range l.Nodes {
		if n.Kind == KindHost {
			out = append(out, n)
		}
	}
	return out
}

// IncidentLink names one link touching a node and which of its directions
// faces that node.
type IncidentLink struct {
	Link    int // index into Links
	Forward bool
}

// Incident returns, for each node in Nodes order, the links incident to it
// with the facing direction resolved.
func (l *Layout) Incident() [][]IncidentLink {
	out := make([][]IncidentLink, len(l.Nodes))
	for li, link := range l.Links {
		if i := l.NodeIndex(link.To); i >= 0 {
			out[i] = append(out[i], IncidentLink{Link: li, Forward: true})
		}
		if i := l.NodeIndex(link.From); i >= 0 {
			out[i] = append(out[i], IncidentLink{Link: li, Forward: false})
		}
	}
	return out
}
