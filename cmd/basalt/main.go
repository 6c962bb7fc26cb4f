package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"basalt/internal/pipeline"
	"basalt/internal/prof"
	"basalt/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "basalt",
	Short: "Basalt metadata compiler",
	Long:  `Basalt synthesizes runtime type metadata for a module manifest: descriptor records, generic instantiation templates, vtable slot tables, and metadata accessors`,
}

var (
	flagColor        string
	flagJobs         int
	flagUI           string
	flagQuiet        bool
	flagVerbose      bool
	flagTimings      bool
	flagCPUProfile   string
	flagMemProfile   string
	flagRuntimeTrace string
)

// main registers subcommands and persistent flags, then executes the root
// command. A command error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().IntVarP(&flagJobs, "jobs", "j", 0, "parallel emission workers (0 = all cores)")
	rootCmd.PersistentFlags().StringVar(&flagUI, "ui", "auto", "interactive progress view (auto|on|off)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress per-declaration progress output")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagTimings, "timings", false, "show timing information")
	rootCmd.PersistentFlags().StringVar(&flagCPUProfile, "cpu-profile", "", "write a CPU profile to this path")
	rootCmd.PersistentFlags().StringVar(&flagMemProfile, "mem-profile", "", "write a heap profile to this path")
	rootCmd.PersistentFlags().StringVar(&flagRuntimeTrace, "runtime-trace", "", "write a runtime execution trace to this path")

	rootCmd.PersistentPreRunE = setupSession

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupSession(cmd *cobra.Command, args []string) error {
	if err := applyColorMode(flagColor); err != nil {
		return err
	}
	if flagVerbose {
		lg, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		pipeline.SetLogger(lg)
	}
	return nil
}

// profileOptions collects the persistent profiling flags.
func profileOptions() prof.Options {
	return prof.Options{
		CPUPath:   flagCPUProfile,
		MemPath:   flagMemProfile,
		TracePath: flagRuntimeTrace,
	}
}

func applyColorMode(mode string) error {
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
