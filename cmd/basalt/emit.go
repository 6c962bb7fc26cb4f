package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"basalt/internal/observ"
	"basalt/internal/pipeline"
	"basalt/internal/prof"
	"basalt/internal/target"
)

const noBasaltTomlMessage = "no basalt.toml found\nplease run inside a module or pass its directory, e.g.:\n  basalt emit path/to/module"

var (
	emitOutput     string
	emitAccessors  bool
	emitNoCache    bool
	emitFixups     bool
	emitRuntimeDir string
)

func init() {
	emitCmd.Flags().StringVarP(&emitOutput, "output", "o", "", "write the module here instead of the manifest's [emit].output")
	emitCmd.Flags().BoolVar(&emitAccessors, "accessors", false, "emit a metadata accessor function per non-generic declaration")
	emitCmd.Flags().BoolVar(&emitNoCache, "no-cache", false, "skip the emission summary cache")
	emitCmd.Flags().BoolVar(&emitFixups, "fixups", false, "print the field-offset fixup table")
	emitCmd.Flags().StringVar(&emitRuntimeDir, "runtime-dir", "", "extract the native C runtime sources here for linking")
}

var emitCmd = &cobra.Command{
	Use:   "emit [dir]",
	Short: "Emit metadata records and templates for a module",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startDir := "."
		if len(args) == 1 {
			startDir = args[0]
		}
		manifest, ok, err := target.LoadManifest(startDir)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(noBasaltTomlMessage)
		}

		sess, err := prof.Start(profileOptions())
		if err != nil {
			return err
		}
		defer sess.Stop()

		var timer *observ.Timer
		if flagTimings {
			timer = observ.NewTimer()
		}

		opts := pipeline.Options{
			Manifest:  manifest,
			Jobs:      flagJobs,
			Accessors: emitAccessors,
			Timer:     timer,
		}
		if !emitNoCache {
			if cache, err := pipeline.OpenSummaryCache("basalt"); err == nil {
				opts.Cache = cache
			}
		}

		mode, err := readUIMode(flagUI)
		if err != nil {
			return err
		}

		var res *pipeline.Result
		var runErr error
		if shouldUseTUI(mode) {
			res, runErr = runWithUI(cmd.Context(), manifest.Config.Package.Name, declNames(manifest), opts)
		} else {
			if !flagQuiet {
				opts.Report = plainReporter(cmd.ErrOrStderr())
			}
			res, runErr = pipeline.Run(cmd.Context(), opts)
		}
		if res == nil {
			return runErr
		}
		for _, e := range multierr.Errors(runErr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", e)
		}

		out := emitOutput
		if out == "" {
			out = manifest.OutputPath()
		}
		renderIdx := timer.Begin("render")
		rendered := res.Module.Render()
		timer.End(renderIdx, humanize.IBytes(uint64(len(rendered))))
		if out == "" {
			fmt.Fprint(cmd.OutOrStdout(), rendered)
		} else {
			if err := os.WriteFile(out, []byte(rendered), 0644); err != nil {
				return err
			}
			if !flagQuiet {
				total := 0
				for _, d := range res.Summary.Decls {
					total += d.Bytes(res.Target.WordSize)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s of metadata, %d declarations)\n",
					out, humanize.IBytes(uint64(total)), len(res.Summary.Decls))
			}
		}

		if emitRuntimeDir != "" {
			sources, err := extractNativeRuntime(emitRuntimeDir)
			if err != nil {
				return err
			}
			if !flagQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "extracted %d runtime sources to %s\n", len(sources), emitRuntimeDir)
			}
		}
		if emitFixups {
			for _, f := range res.Module.Fixups() {
				fmt.Fprintf(cmd.ErrOrStderr(), "fixup: %s.%s -> %s[%d]\n", f.Class, f.Field, f.Symbol, f.Word)
			}
		}
		if flagTimings {
			fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
		}
		return runErr
	},
}

func declNames(m *target.Manifest) []string {
	names := make([]string, len(m.Config.Decls))
	for i, d := range m.Config.Decls {
		names[i] = d.Name
	}
	return names
}

// plainReporter prints one line per finished declaration. Reporters run on
// worker goroutines, so writes are serialized.
func plainReporter(w io.Writer) pipeline.Reporter {
	var mu sync.Mutex
	return func(ev pipeline.Event) {
		if ev.Kind != pipeline.EventDone {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch {
		case ev.Err != nil:
			fmt.Fprintf(w, "  failed  %s: %v\n", ev.Decl, ev.Err)
		case ev.Skipped:
			fmt.Fprintf(w, "  skipped %s (foreign)\n", ev.Decl)
		default:
			fmt.Fprintf(w, "  emitted %s -> %s\n", ev.Decl, ev.Symbol)
		}
	}
}
