// Package pipeline drives metadata emission for a whole manifest:
// declaration resolution, parallel per-declaration emission, progress
// reporting, and the on-disk summary cache.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"basalt/internal/decl"
	"basalt/internal/interop"
	"basalt/internal/ir"
	"basalt/internal/layout"
	"basalt/internal/meta"
	"basalt/internal/observ"
	"basalt/internal/target"
	"basalt/internal/types"
)

// Options configure one emission run.
type Options struct {
	// Manifest drives the run: its package name, target, and declarations.
	Manifest *target.Manifest

	// Jobs caps parallel per-declaration emission; zero or less means
	// GOMAXPROCS. Module globals land in completion order, so runs wanting
	// byte-stable output pass 1.
	Jobs int

	// Accessors additionally emits a metadata accessor function per
	// non-generic native declaration.
	Accessors bool

	// Report receives progress events, may be nil.
	Report Reporter

	// Cache, when set, stores the run's summary keyed by the manifest
	// digest. Failed runs are not cached.
	Cache *SummaryCache

	// Timer, when set, records per-phase wall-clock timings.
	Timer *observ.Timer
}

// Result is everything one run produced.
type Result struct {
	Target  target.Target
	Module  *ir.Module
	Decls   []*decl.Nominal
	Summary *Summary
}

// Run emits metadata for every declaration in the manifest and returns the
// populated module. Declarations emit in parallel; an unsupported
// declaration does not stop the run, and failures come back aggregated,
// one per declaration.
func Run(ctx context.Context, opts Options) (*Result, error) {
	m := opts.Manifest
	if m == nil {
		return nil, fmt.Errorf("pipeline: no manifest")
	}
	tgt, err := m.Config.ResolveTarget()
	if err != nil {
		return nil, err
	}

	in := types.NewInterner()
	eng := layout.New(tgt, in)
	mod := ir.NewModule(m.Config.Package.Name, tgt)
	bridge := interop.New(tgt.Interop)
	bridge.SetDynamicSelectors(m.Config.Target.DynamicSelectors)
	mc := meta.NewContext(mod, eng, bridge)

	resolveIdx := opts.Timer.Begin("resolve")
	decls, err := BuildDecls(m.Config.Decls, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Path, err)
	}
	opts.Timer.End(resolveIdx, fmt.Sprintf("%d declarations", len(decls)))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	type outcome struct {
		emitted  *meta.Emitted
		accessor string
		skipped  bool
		err      error
	}
	outcomes := make([]outcome, len(decls))

	emitIdx := opts.Timer.Begin("emit")
	g, gctx := errgroup.WithContext(ctx)
	if len(decls) > 0 {
		g.SetLimit(min(jobs, len(decls)))
	}
	for i, d := range decls {
		i, d := i, d
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			opts.Report.emit(Event{Kind: EventStart, Decl: d.QualifiedName(), Index: i, Total: len(decls)})
			done := Event{Kind: EventDone, Decl: d.QualifiedName(), Index: i, Total: len(decls)}
			if d.ForeignClass {
				// Imported classes have no native record; references to
				// their class objects stay external.
				outcomes[i] = outcome{skipped: true}
				done.Skipped = true
				opts.Report.emit(done)
				return nil
			}
			e, err := emitOne(mc, d)
			outcomes[i] = outcome{emitted: e, err: err}
			if err != nil {
				done.Err = err
				Logger().Warn("emission failed",
					zap.String("decl", d.QualifiedName()),
					zap.Error(err))
			} else {
				done.Symbol = e.Symbol
			}
			opts.Report.emit(done)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	opts.Timer.End(emitIdx, fmt.Sprintf("%d workers", jobs))

	var failures error
	for i, d := range decls {
		if err := outcomes[i].err; err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", d.QualifiedName(), err))
		}
	}

	if opts.Accessors {
		accessorIdx := opts.Timer.Begin("accessors")
		for i, d := range decls {
			o := &outcomes[i]
			if o.err != nil || o.skipped || d.IsGeneric() {
				continue
			}
			sym, err := mc.EmitTypeAccessor(d.Type)
			if err != nil {
				failures = multierr.Append(failures, fmt.Errorf("%s: accessor: %w", d.QualifiedName(), err))
				continue
			}
			o.accessor = sym
		}
		opts.Timer.End(accessorIdx, "")
	}

	summary := &Summary{
		Schema:   summaryCacheSchema,
		Package:  m.Config.Package.Name,
		Target:   tgt.Name,
		WordSize: tgt.WordSize,
		Interop:  tgt.Interop,
		Decls:    make([]DeclSummary, len(decls)),
	}
	for i, d := range decls {
		ds := DeclSummary{
			Name:    d.QualifiedName(),
			Kind:    d.Kind.String(),
			Generic: d.IsGeneric(),
			Foreign: d.ForeignClass,
		}
		o := outcomes[i]
		switch {
		case o.err != nil:
			ds.Failure = o.err.Error()
		case o.emitted != nil:
			ds.Symbol = o.emitted.Symbol
			ds.AddressPoint = o.emitted.AddressPoint
			ds.Words = o.emitted.Words
			ds.Accessor = o.accessor
		}
		summary.Decls[i] = ds
	}

	if opts.Cache != nil && failures == nil {
		key, err := ManifestDigest(m)
		if err != nil {
			Logger().Warn("manifest digest failed", zap.Error(err))
		} else if err := opts.Cache.Put(key, summary); err != nil {
			Logger().Warn("summary cache write failed", zap.Error(err))
		}
	}

	Logger().Info("emission finished",
		zap.String("package", summary.Package),
		zap.Int("decls", len(decls)),
		zap.Bool("failed", failures != nil))
	return &Result{Target: tgt, Module: mod, Decls: decls, Summary: summary}, failures
}

// emitOne rescues a panicking emission only to name the declaration that
// died; invariant violations stay fatal.
func emitOne(mc *meta.Context, d *decl.Nominal) (e *meta.Emitted, err error) {
	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Sprintf("emitting %s: %v", d.QualifiedName(), r))
		}
	}()
	return mc.EnsureMetadata(d)
}
