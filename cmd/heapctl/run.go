package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/heap/printer"
	"github.com/joshuapare/fwheap/internal/writer"
)

var (
	runPayload bool
	runNoDump  bool
	runSave    string
)

func init() {
	cmd := newRunCmd()
	addHeapFlags(cmd, true)
	cmd.Flags().BoolVar(&runPayload, "payload", false, "Include payload bytes in the final dump")
	cmd.Flags().BoolVar(&runNoDump, "no-dump", false, "Skip the final chain dump")
	cmd.Flags().StringVar(&runSave, "save", "", "Write a snapshot of the final region to this file")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute an allocation script",
		Long: `The run command executes a line-oriented allocation script against a
fresh heap (or a heap image) and prints the result of every line followed by
the final chain.

Script ops:
  alloc NAME BYTES        calloc NAME COUNT SIZE   realloc NAME BYTES
  free NAME               write NAME HEX           expect NAME HEX
  text NAME STRING...     show NAME
  defrag                  check                    dump          stats
Lines starting with # are comments. Use - to read the script from stdin.

Example:
  heapctl run boot.heap
  heapctl run boot.heap --size 8192 --margin 0
  heapctl run boot.heap --image board.img --json
  heapctl run boot.heap --save boot.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}
	return cmd
}

// runReport is the JSON document printed by run --json.
type runReport struct {
	Results []stepResult `json:"results"`
	Error   string       `json:"error,omitempty"`
	Stats   alloc.Stats  `json:"stats"`
	Usage   *alloc.Usage `json:"usage,omitempty"`
}

func runRun(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	prog, err := readScript(args[0])
	if err != nil {
		return err
	}
	printVerbose("Parsed %d instruction(s) from %s\n", len(prog), args[0])

	s, err := openSession(heapSize, heapImage, heapMargin)
	if err != nil {
		return err
	}

	opts := printer.DefaultOptions()
	opts.ShowPayload = runPayload
	var out io.Writer = os.Stdout
	if jsonOut || quiet {
		out = io.Discard
	}

	r := newRunner(s.a, out, opts)
	results, runErr := r.run(prog)

	if jsonOut {
		report := runReport{Results: results, Stats: s.a.GetStats()}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		if u, err := s.a.Usage(); err == nil {
			report.Usage = &u
		}
		if err := printJSON(report); err != nil {
			runErr = errors.Join(runErr, err)
		}
	} else {
		for _, res := range results {
			printInfo("%s\n", res)
		}
		if runErr == nil && !runNoDump && !quiet {
			printInfo("\n")
			if err := printer.New(s.a, os.Stdout, opts).PrintChain(); err != nil {
				runErr = err
			}
		}
	}

	if runErr == nil && runSave != "" {
		runErr = s.snapshot(&writer.FileWriter{Path: runSave})
		if runErr == nil {
			printVerbose("Saved snapshot to %s\n", runSave)
		}
	}

	if err := s.Close(ctx); err != nil {
		return errors.Join(runErr, fmt.Errorf("close heap: %w", err))
	}
	return runErr
}

func readScript(path string) ([]instr, error) {
	if path == "-" {
		return parseScript(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return parseScript(f)
}
