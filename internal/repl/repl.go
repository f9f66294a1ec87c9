// Package repl provides an interactive prompt for loading selections and
// scrubbing through telemetry without a rendering layer attached.
package repl

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/dustin/go-humanize"

	"github.com/flowscope/flowscope/internal/loader"
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/topology"
)

// REPL drives a controller from an interactive prompt.
type REPL struct {
	ctrl     *loader.Controller
	layout   *topology.Layout
	accuracy float64
	ctx      context.Context
}

// New builds a REPL over a controller.
func New(ctx context.Context, ctrl *loader.Controller, layout *topology.Layout, statsAccuracy float64) *REPL {
	return &REPL{ctrl: ctrl, layout: layout, accuracy: statsAccuracy, ctx: ctx}
}

// Run blocks until the user quits.
func (r *REPL) Run() {
	fmt.Println("flowscope interactive inspector; type 'help' for commands")
	p := prompt.New(
		r.execute,
		r.complete,
		prompt.OptionTitle("flowscope"),
		prompt.OptionPrefix("flowscope> "),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			cmd := strings.TrimSpace(in)
			return breakline && (cmd == "quit" || cmd == "exit")
		}),
	)
	p.Run()
}

var commands = []prompt.Suggest{
	{Text: "load", Description: "load <scenario> <protocol> <load>: apply a selection"},
	{Text: "sample", Description: "sample <t>: interpolated snapshot at time t"},
	{Text: "seek", Description: "seek <t>: reset the cursor, then sample at t"},
	{Text: "state", Description: "show the committed selection"},
	{Text: "stats", Description: "per-series statistics of the committed store"},
	{Text: "diag", Description: "alignment diagnostics of the last load"},
	{Text: "layout", Description: "show nodes and links"},
	{Text: "help", Description: "list commands"},
	{Text: "quit", Description: "exit"},
}

func (r *REPL) complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}

func (r *REPL) execute(in string) {
	fields := strings.Fields(in)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "load":
		r.cmdLoad(fields[1:])
	case "sample":
		r.cmdSample(fields[1:], false)
	case "seek":
		r.cmdSample(fields[1:], true)
	case "state":
		r.cmdState()
	case "stats":
		r.cmdStats()
	case "diag":
		r.cmdDiag()
	case "layout":
		r.cmdLayout()
	case "help":
		for _, c := range commands {
			fmt.Printf("  %-8s %s\n", c.Text, c.Description)
		}
	case "quit", "exit":
		// handled by the exit checker
	default:
		fmt.Printf("unknown command %q; type 'help'\n", fields[0])
	}
}

func (r *REPL) cmdLoad(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: load <scenario> <protocol> <load>")
		return
	}
	sel := series.Selection{Scenario: args[0], Protocol: args[1], Load: args[2]}

	view, err := r.ctrl.Select(r.ctx, sel)
	if err != nil {
		fmt.Printf("load failed: %v\n", err)
		return
	}
	view.Reset()
	fmt.Printf("loaded %s: %s grid points, duration %.3fs, %s diagnostics\n",
		view.Selection,
		humanize.Comma(int64(view.GridLen())),
		view.Duration(),
		humanize.Comma(int64(len(view.Diagnostics))))
}

func (r *REPL) cmdSample(args []string, seek bool) {
	view := r.ctrl.Current()
	if view == nil {
		fmt.Println("no selection loaded; use 'load' first")
		return
	}
	if len(args) != 1 {
		fmt.Println("usage: sample <t>")
		return
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Printf("bad time %q\n", args[0])
		return
	}

	if seek {
		view.Reset()
	}
	snap := view.Sample(t)

	fmt.Printf("t=%.3f (duration %.3f)\n", snap.Time, view.Duration())
	layout := view.Layout()
	for i, ls := range snap.Links {
		fmt.Printf("  %-24s fwd flow=%10.3f queue=%10.3f   rev flow=%10.3f queue=%10.3f\n",
			layout.Links[i].Name(),
			ls.Forward.Flow, ls.Forward.Queue,
			ls.Reverse.Flow, ls.Reverse.Queue)
	}
	for i, q := range snap.Nodes {
		fmt.Printf("  %-24s queue=%10.3f\n", layout.Nodes[i].String(), q)
	}
}

func (r *REPL) cmdState() {
	view := r.ctrl.Current()
	if view == nil {
		fmt.Println("no selection loaded")
		return
	}
	fmt.Printf("%s  version=%d  grid=%s  duration=%.3fs  loaded %s\n",
		view.Selection,
		view.Version,
		humanize.Comma(int64(view.GridLen())),
		view.Duration(),
		humanize.Time(view.LoadedAt))
}

func (r *REPL) cmdStats() {
	view := r.ctrl.Current()
	if view == nil {
		fmt.Println("no selection loaded")
		return
	}
	for _, s := range view.Stats(r.accuracy) {
		line := fmt.Sprintf("  %-36s n=%-8s mean=%10.3f min=%10.3f max=%10.3f",
			s.Name, humanize.Comma(s.Count), s.Mean, s.Min, s.Max)
		if s.P50 != nil && s.P99 != nil {
			line += fmt.Sprintf(" p50=%10.3f p99=%10.3f", *s.P50, *s.P99)
		}
		fmt.Println(line)
	}
}

func (r *REPL) cmdDiag() {
	view := r.ctrl.Current()
	if view == nil {
		fmt.Println("no selection loaded")
		return
	}
	if len(view.Diagnostics) == 0 {
		fmt.Println("no diagnostics; every series matched the grid")
		return
	}
	for _, d := range view.Diagnostics {
		fmt.Println("  " + d.String())
	}
}

func (r *REPL) cmdLayout() {
	nodes := make([]string, 0, len(r.layout.Nodes))
	for _, n := range r.layout.Nodes {
		nodes = append(nodes, n.String())
	}
	sort.Strings(nodes)
	fmt.Printf("nodes: %s\n", strings.Join(nodes, ", "))
	for _, l := range r.layout.Links {
		fmt.Printf("  %s <-> %s\n", l.From, l.To)
	}
}
