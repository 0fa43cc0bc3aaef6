package printer

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/internal/buf"
	"github.com/joshuapare/fwheap/internal/format"
)

func state(b alloc.BlockInfo) string {
	switch {
	case b.Sentinel:
		return "sentinel"
	case b.Free():
		return "free"
	default:
		return "used"
	}
}

// printChainText prints one line per block followed by the usage summary.
func (p *Printer) printChainText(blocks []alloc.BlockInfo) error {
	fmt.Fprintf(p.writer, "%-10s %-10s %10s  %-8s %s\n", "HEADER", "PTR", "SIZE", "STATE", "NEXT")
	for _, b := range blocks {
		if err := p.printBlockText(b, 0); err != nil {
			return err
		}
	}
	if p.opts.PrintUsage {
		fmt.Fprintln(p.writer)
		return p.PrintUsage()
	}
	return nil
}

// printBlockText prints a block in human-readable text format.
func (p *Printer) printBlockText(b alloc.BlockInfo, depth int) error {
	indent := strings.Repeat(" ", depth*p.opts.IndentSize)

	next := fmt.Sprintf("0x%08X", b.Next)
	if b.Tail {
		next = "(tail)"
	}
	st := state(b)
	if b.FreeCount > 1 {
		st = fmt.Sprintf("free x%d", b.FreeCount)
	}
	fmt.Fprintf(p.writer, "%s0x%08X 0x%08X %10d  %-8s %s\n",
		indent, b.Header, uintptr(b.Ptr), b.Size, st, next)

	if p.opts.ShowPayload && b.Size > 0 {
		data, truncated := p.payload(b)
		pad := strings.Repeat(" ", (depth+1)*p.opts.IndentSize)
		fmt.Fprintf(p.writer, "%s%s", pad, hex.EncodeToString(data))
		if truncated {
			fmt.Fprintf(p.writer, "... (%d bytes)", b.Size)
		}
		fmt.Fprintln(p.writer)
	}
	return nil
}

func (p *Printer) printUsageText(u alloc.Usage) error {
	fmt.Fprintf(p.writer, "Region:  %d bytes\n", u.Length)
	fmt.Fprintf(p.writer, "Blocks:  %d (%d free)\n", u.Blocks, u.FreeBlocks)
	fmt.Fprintf(p.writer, "In use:  %d bytes\n", u.InUseBytes)
	fmt.Fprintf(p.writer, "Free:    %d bytes (largest %d)\n", u.FreeBytes, u.LargestFree)
	fmt.Fprintf(p.writer, "Headers: %d bytes (%d each)\n", u.HeaderBytes, format.HeaderSize)
	_, err := fmt.Fprintf(p.writer, "Raw:     %d bytes\n", u.RawBytes)
	return err
}

// printChainHex dumps each block's header and payload bytes.
func (p *Printer) printChainHex(blocks []alloc.BlockInfo) error {
	for _, b := range blocks {
		if err := p.printBlockHex(b); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printBlockHex(b alloc.BlockInfo) error {
	region := p.heap.Region()
	if !buf.Has(region, int(b.Header), format.HeaderSize) {
		return fmt.Errorf("header 0x%X outside region", b.Header)
	}
	fmt.Fprintf(p.writer, "# header 0x%08X (%s, %d bytes)\n", b.Header, state(b), b.Size)
	fmt.Fprint(p.writer, hex.Dump(region[b.Header:b.Header+format.HeaderSize]))
	if b.Size == 0 {
		return nil
	}
	data, truncated := p.payload(b)
	fmt.Fprint(p.writer, hex.Dump(data))
	if truncated {
		fmt.Fprintf(p.writer, "# ... %d more bytes\n", b.Size-uintptr(len(data)))
	}
	return nil
}
