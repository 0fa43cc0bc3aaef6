package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/heap/printer"
)

var (
	dumpFormat  string
	dumpPayload bool
	dumpMax     int
	dumpFree    bool
	dumpPtr     uint64
)

func init() {
	cmd := newDumpCmd()
	addHeapFlags(cmd, false)
	cmd.Flags().StringVar(&dumpFormat, "format", "text", "Output format (text, json, hex)")
	cmd.Flags().BoolVar(&dumpPayload, "payload", false, "Include payload bytes")
	cmd.Flags().
		IntVar(&dumpMax, "max-bytes", printer.DefaultMaxPayloadBytes, "Payload bytes shown per block (0 = all)")
	cmd.Flags().BoolVar(&dumpFree, "free", true, "Include free blocks")
	cmd.Flags().Uint64Var(&dumpPtr, "ptr", 0, "Dump only the block at this payload pointer")
	_ = cmd.MarkFlagRequired("image")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump --image <file>",
		Short: "Print the block chain of a heap image",
		Long: `The dump command attaches to a persisted heap image and prints every
block from the sentinel to the tail.

Example:
  heapctl dump --image board.img
  heapctl dump --image board.img --payload --max-bytes 0
  heapctl dump --image board.img --format hex --ptr 0x30
  heapctl dump --image board.img --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context())
		},
	}
	return cmd
}

func runDump(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openReadOnlySession(heapImage, heapMargin)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	opts := printer.DefaultOptions()
	opts.Format = printer.Format(dumpFormat)
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	opts.ShowPayload = dumpPayload
	opts.MaxPayloadBytes = dumpMax
	opts.ShowFree = dumpFree

	switch opts.Format {
	case printer.FormatText, printer.FormatJSON, printer.FormatHex:
	default:
		return fmt.Errorf("unknown format %q (want text, json, or hex)", dumpFormat)
	}

	p := printer.New(s.a, os.Stdout, opts)
	if dumpPtr != 0 {
		return p.PrintBlock(alloc.Ptr(dumpPtr))
	}
	return p.PrintChain()
}
