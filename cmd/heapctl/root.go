package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fwheap/heap"
	"github.com/joshuapare/fwheap/internal/logger"
)

var (
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string
	logJSON  bool
	logDir   string
)

// Heap source flags shared by run, dump, check, and stress.
var (
	heapSize   int
	heapImage  string
	heapMargin int
)

const defaultHeapSize = 64 * 1024

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Exercise and inspect firmware heap images",
	Long: `heapctl drives the firmware's first-fit heap allocator on the host.
It runs allocation scripts against anonymous or file-backed regions, dumps and
validates persisted heap images, and runs randomized stress workloads with
invariant checks after every step.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initLogging() },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log to stderr at this level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit log records as JSON")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Write logs to a dated file in this directory instead of stderr")
}

// addHeapFlags registers the heap source flags on cmd.
func addHeapFlags(cmd *cobra.Command, withSize bool) {
	if withSize {
		cmd.Flags().IntVar(&heapSize, "size", defaultHeapSize, "Region size in bytes for new heaps")
	}
	cmd.Flags().StringVar(&heapImage, "image", "", "Heap image file (created when missing)")
	cmd.Flags().
		IntVar(&heapMargin, "margin", heap.DefaultSafetyMargin, "Bytes kept back from the end of the region")
}

func initLogging() error {
	enabled := verbose || logLevel != "" || logDir != ""
	level := slog.LevelDebug
	if logLevel != "" {
		level = logger.ParseLevel(logLevel)
	}
	opts := logger.Options{
		Enabled: enabled,
		Level:   level,
		JSON:    logJSON,
		Writer:  os.Stderr,
	}
	if logDir != "" {
		opts.Writer = nil
		opts.LogDir = logDir
	}
	return logger.Init(opts)
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo writes to stdout unless --quiet.
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError writes to stderr regardless of --quiet.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose writes to stdout only with --verbose.
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
