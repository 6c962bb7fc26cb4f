package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"basalt/internal/pipeline"
	"basalt/internal/prof"
	"basalt/internal/target"
)

// outputFormat selects how layout renders its report.
type outputFormat int

const (
	formatTable outputFormat = iota
	formatJSON
)

var _ pflag.Value = (*outputFormat)(nil)

// String implements pflag.Value.
func (f *outputFormat) String() string {
	switch *f {
	case formatTable:
		return "table"
	case formatJSON:
		return "json"
	}
	return ""
}

// Set implements pflag.Value.
func (f *outputFormat) Set(s string) error {
	switch strings.ToLower(s) {
	case "table":
		*f = formatTable
	case "json":
		*f = formatJSON
	default:
		return fmt.Errorf("%s is not a valid format (expected table|json)", s)
	}
	return nil
}

// Type implements pflag.Value.
func (f *outputFormat) Type() string { return "format" }

var (
	layoutFormat  outputFormat
	layoutNoCache bool
)

func init() {
	layoutCmd.Flags().Var(&layoutFormat, "format", "report format (table|json)")
	layoutCmd.Flags().BoolVar(&layoutNoCache, "no-cache", false, "recompute instead of reading the summary cache")
}

var layoutCmd = &cobra.Command{
	Use:   "layout [dir]",
	Short: "Show metadata record and template sizes for a module",
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

		var cache *pipeline.SummaryCache
		if !layoutNoCache {
			if c, err := pipeline.OpenSummaryCache("basalt"); err == nil {
				cache = c
			}
		}

		summary, cached, err := pipeline.CachedSummary(cache, manifest)
		if err != nil {
			return err
		}
		var runErr error
		if !cached {
			res, err := pipeline.Run(cmd.Context(), pipeline.Options{
				Manifest: manifest,
				Jobs:     flagJobs,
				Cache:    cache,
			})
			if res == nil {
				return err
			}
			summary, runErr = res.Summary, err
		}

		if layoutFormat == formatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			return runErr
		}

		// Human output sorts by declaration name; the JSON report keeps
		// manifest order.
		rows := append([]pipeline.DeclSummary(nil), summary.Decls...)
		col := collate.New(language.Und)
		sort.SliceStable(rows, func(i, j int) bool {
			return col.CompareString(rows[i].Name, rows[j].Name) < 0
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 0, 2, ' ', 0)
		fmt.Fprintf(w, "KIND\tNAME\tSYMBOL\tWORDS\tSIZE\n")
		total := 0
		for _, r := range rows {
			switch {
			case r.Failure != "":
				fmt.Fprintf(w, "%s\t%s\t-\t-\tfailed: %s\n", r.Kind, r.Name, r.Failure)
			case r.Foreign:
				fmt.Fprintf(w, "%s\t%s\t-\t-\tforeign\n", r.Kind, r.Name)
			default:
				bytes := r.Bytes(summary.WordSize)
				total += bytes
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.Kind, r.Name, r.Symbol, r.Words, humanize.IBytes(uint64(bytes)))
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s of metadata for %s (%s, %d-byte words)\n",
			humanize.IBytes(uint64(total)), summary.Package, summary.Target, summary.WordSize)
		return runErr
	},
}
