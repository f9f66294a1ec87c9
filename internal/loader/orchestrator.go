// LOCATION: internal/loader/orchestrator.go
//
// The orchestrator performs one load: fan-out of every fetch the selection
// needs, fan-in, then a sequential alignment pass in program order.
//
// Determinism: the grid is established by the first resource in program
// order (links in layout order, forward before reverse) that parsed
// successfully — never by wall-clock arrival order of the concurrent
// fetches. Fetches race; alignment does not.

package loader

import (
	"context"
	"log/slog"

	"github.com/flowscope/flowscope/internal/align"
	"github.com/flowscope/flowscope/internal/engine"
	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/fetch"
	"github.com/flowscope/flowscope/internal/logging"
	"github.com/flowscope/flowscope/internal/manifest"
	"github.com/flowscope/flowscope/internal/observability"
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/telemetry"
	"github.com/flowscope/flowscope/internal/topology"
	"golang.org/x/sync/errgroup"
)

// Orchestrator owns the in-progress construction of one series store. It is
// created per load and discarded wholesale afterwards; no ingestion state
// outlives it.
type Orchestrator struct {
	sel      series.Selection
	layout   *topology.Layout
	fetcher  fetch.Fetcher
	manifest *manifest.Manifest
	kinds    []series.ScalarKind
	metrics  *observability.Collector
	log      *slog.Logger
}

// linkFetch is one resolved (or failed) link direction resource.
type linkFetch struct {
	resource string
	rows     telemetry.LinkRows
	err      error
}

// scalarFetch is one resolved (or failed) host scalar resource.
type scalarFetch struct {
	resource string
	host     string
	kind     series.ScalarKind
	rows     telemetry.ScalarRows
	err      error
}

// NewOrchestrator builds an orchestrator for one selection.
func NewOrchestrator(sel series.Selection, layout *topology.Layout, fetcher fetch.Fetcher, mf *manifest.Manifest, metrics *observability.Collector) *Orchestrator {
	if mf == nil {
		mf = manifest.Empty()
	}
	if metrics == nil {
		metrics = observability.Nop()
	}
	return &Orchestrator{
		sel:      sel,
		layout:   layout,
		fetcher:  fetcher,
		manifest: mf,
		kinds:    series.KnownScalarKinds,
		metrics:  metrics,
		log:      logging.Component("loader").With("selection", sel.String()),
	}
}

// Load performs the load. It returns a ready sampling engine and every
// alignment diagnostic the load produced, or a fatal error when no required
// series established a grid (no partial engine is ever returned).
func (o *Orchestrator) Load(ctx context.Context) (*engine.Engine, []align.Diagnostic, error) {
	if len(o.layout.Links) == 0 {
		return nil, nil, errors.ErrEmptyTopology
	}

	required, optional := o.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rec := &align.Recorder{}
	aligner := align.New(o.reporter(rec))

	// Grid establishment: first successfully parsed required series in
	// program order wins.
	for _, lf := range required {
		if lf.err == nil {
			aligner.Establish(lf.resource, lf.rows.Timestamps)
			break
		}
	}
	if !aligner.Established() {
		o.log.Error("no required series resolved; load failed")
		return nil, rec.Events(), errors.ErrGridUnestablished
	}

	store := o.assemble(aligner, required, optional)
	eng := engine.New(o.layout, store)

	o.log.Info("load complete",
		"grid_len", store.Grid.Len(),
		"duration", store.Grid.Duration(),
		"links", len(o.layout.Links),
		"diagnostics", len(rec.Events()))

	return eng, rec.Events(), nil
}

// fetchAll fans out every fetch concurrently and fans back in. Individual
// fetch or decode failures are captured per resource, never propagated
// through the group: whether they are fatal is decided later, in program
// order, by the alignment pass.
func (o *Orchestrator) fetchAll(ctx context.Context) ([]linkFetch, []scalarFetch) {
	required := make([]linkFetch, 2*len(o.layout.Links))
	for i, link := range o.layout.Links {
		required[2*i].resource = LinkResource(o.sel, link, true)
		required[2*i+1].resource = LinkResource(o.sel, link, false)
	}

	var optional []scalarFetch
	for _, kind := range o.kinds {
		for _, host := range o.manifest.Hosts(o.sel, kind) {
			optional = append(optional, scalarFetch{
				resource: ScalarResource(o.sel, kind, host),
				host:     topology.NodeRef{Kind: topology.KindHost, Index: host}.String(),
				kind:     kind,
			})
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	for i := range required {
		lf := &required[i]
		g.Go(func() error {
			res, err := o.fetcher.Fetch(ctx, lf.resource)
			if err != nil {
				o.countFetch(err)
				lf.err = err
				return nil
			}
			rows, err := telemetry.DecodeLinkRows(lf.resource, res.Payload)
			if err != nil {
				o.countFetch(err)
				lf.err = err
				return nil
			}
			o.metrics.Fetches.WithLabelValues(observability.FetchOK).Inc()
			o.log.Debug("resource resolved",
				"resource", lf.resource,
				"rows", len(rows.Timestamps),
				"fingerprint", res.Fingerprint)
			lf.rows = rows
			return nil
		})
	}

	for i := range optional {
		sf := &optional[i]
		g.Go(func() error {
			res, err := o.fetcher.Fetch(ctx, sf.resource)
			if err != nil {
				o.countFetch(err)
				sf.err = err
				return nil
			}
			rows, err := telemetry.DecodeScalarRows(sf.resource, res.Payload)
			if err != nil {
				o.countFetch(err)
				sf.err = err
				return nil
			}
			o.metrics.Fetches.WithLabelValues(observability.FetchOK).Inc()
			sf.rows = rows
			return nil
		})
	}

	// Workers only record into their own slot; Wait is the only
	// synchronization the fan-in needs.
	_ = g.Wait()

	return required, optional
}

// assemble conforms every fetched series against the established grid and
// builds the store. Runs sequentially; order no longer matters here beyond
// reproducible diagnostics.
func (o *Orchestrator) assemble(aligner *align.Aligner, required []linkFetch, optional []scalarFetch) *series.Store {
	store := series.NewStore(o.sel, aligner.Grid())

	for i, link := range o.layout.Links {
		ls := &series.LinkSeries{}

		fwd := required[2*i]
		if fwd.err == nil {
			cols := aligner.Conform(fwd.resource, fwd.rows.Throughput, fwd.rows.QueueDepth)
			ls.Forward = series.DirectionSeries{Throughput: cols[0], QueueDepth: cols[1]}
		} else {
			cols := aligner.Substitute(fwd.resource, fwd.err, 2)
			ls.Forward = series.DirectionSeries{Throughput: cols[0], QueueDepth: cols[1]}
		}

		rev := required[2*i+1]
		if rev.err == nil {
			cols := aligner.Conform(rev.resource, rev.rows.Throughput, rev.rows.QueueDepth)
			ls.Reverse = series.DirectionSeries{Throughput: cols[0], QueueDepth: cols[1]}
		} else {
			cols := aligner.Substitute(rev.resource, rev.err, 2)
			ls.Reverse = series.DirectionSeries{Throughput: cols[0], QueueDepth: cols[1]}
		}

		store.Links[link.Name()] = ls
	}

	for _, sf := range optional {
		if sf.err != nil {
			// Optional series failures leave the host without an
			// override for that kind; absence is not zero.
			aligner.Omit(sf.resource, sf.err)
			continue
		}
		cols := aligner.Conform(sf.resource, sf.rows.Values)
		store.SetHostScalar(sf.host, sf.kind, cols[0])
	}

	return store
}

// reporter wraps a recorder so every diagnostic is also logged and counted.
func (o *Orchestrator) reporter(rec *align.Recorder) align.Reporter {
	return reporterFunc(func(d align.Diagnostic) {
		rec.Report(d)
		o.metrics.Discrepancies.WithLabelValues(d.Kind.String()).Inc()
		if d.Kind == align.EventGridEstablished {
			o.log.Info("grid established", "resource", d.Resource, "grid_len", d.GridLen)
		} else {
			o.log.Warn("alignment discrepancy", "event", d.String())
		}
	})
}

type reporterFunc func(align.Diagnostic)

func (f reporterFunc) Report(d align.Diagnostic) { f(d) }

func (o *Orchestrator) countFetch(err error) {
	outcome := observability.FetchUnavailable
	if errors.Is(err, errors.ErrMalformedPayload) {
		outcome = observability.FetchMalformed
	}
	o.metrics.Fetches.WithLabelValues(outcome).Inc()
}
