package printer

import (
	"fmt"
	"io"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/internal/buf"
)

const (
	DefaultIndentSize      = 2
	DefaultMaxPayloadBytes = 32
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs one human-readable line per block.
	FormatText Format = "text"

	// FormatJSON outputs JSON format.
	FormatJSON Format = "json"

	// FormatHex outputs a hexdump of each block's header and payload.
	FormatHex Format = "hex"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json, hex).
	// Default: FormatText
	Format Format

	// IndentSize is the number of spaces per indent level (text format only).
	// Default: 2
	IndentSize int

	// ShowFree includes released blocks.
	// Default: true
	ShowFree bool

	// ShowSentinel includes the zero-length header at offset 0.
	// Default: false
	ShowSentinel bool

	// ShowPayload includes payload bytes.
	// Default: false
	ShowPayload bool

	// MaxPayloadBytes limits how many payload bytes are shown per block.
	// Set to 0 for no limit.
	// Default: 32
	MaxPayloadBytes int

	// PrintUsage appends a usage summary after the chain.
	// Default: true
	PrintUsage bool
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:          FormatText,
		IndentSize:      DefaultIndentSize,
		ShowFree:        true,
		ShowSentinel:    false,
		ShowPayload:     false,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		PrintUsage:      true,
	}
}

// Heap is the read side of an allocator the printer walks.
type Heap interface {
	Blocks() *alloc.BlockIterator
	Region() []byte
	Usage() (alloc.Usage, error)
}

// Printer handles formatted output of heap chains.
type Printer struct {
	opts   Options
	writer io.Writer
	heap   Heap
}

// New creates a new Printer.
//
// Example:
//
//	p := printer.New(a, os.Stdout, printer.DefaultOptions())
//	if err := p.PrintChain(); err != nil {
//	    return err
//	}
func New(h Heap, w io.Writer, opts Options) *Printer {
	return &Printer{
		heap:   h,
		writer: w,
		opts:   opts,
	}
}

// PrintChain prints every block from the sentinel to the tail.
func (p *Printer) PrintChain() error {
	blocks, err := p.collect()
	if err != nil {
		return fmt.Errorf("walk chain: %w", err)
	}

	switch p.opts.Format {
	case FormatJSON:
		return p.printChainJSON(blocks)
	case FormatHex:
		return p.printChainHex(blocks)
	case FormatText:
		return p.printChainText(blocks)
	default:
		return p.printChainText(blocks)
	}
}

// PrintBlock prints the single block whose payload starts at ptr.
func (p *Printer) PrintBlock(ptr alloc.Ptr) error {
	blocks, err := p.collect()
	if err != nil {
		return fmt.Errorf("walk chain: %w", err)
	}
	for _, b := range blocks {
		if b.Ptr != ptr {
			continue
		}
		switch p.opts.Format {
		case FormatJSON:
			return p.printBlockJSON(b)
		case FormatHex:
			return p.printBlockHex(b)
		default:
			return p.printBlockText(b, 0)
		}
	}
	return fmt.Errorf("no block at ptr 0x%X", uintptr(ptr))
}

// PrintUsage prints the usage summary on its own.
func (p *Printer) PrintUsage() error {
	u, err := p.heap.Usage()
	if err != nil {
		return err
	}
	if p.opts.Format == FormatJSON {
		return p.writeJSON(u)
	}
	return p.printUsageText(u)
}

// collect walks the chain, keeping only the blocks the options ask for.
// The sentinel is always walked so the tail is found, but only kept when
// ShowSentinel is set.
func (p *Printer) collect() ([]alloc.BlockInfo, error) {
	var out []alloc.BlockInfo
	it := p.heap.Blocks()
	for {
		b, err := it.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if b.Sentinel && !p.opts.ShowSentinel {
			continue
		}
		if b.Free() && !p.opts.ShowFree {
			continue
		}
		out = append(out, b)
	}
}

// payload returns the bytes to show for b, truncated to MaxPayloadBytes.
func (p *Printer) payload(b alloc.BlockInfo) (data []byte, truncated bool) {
	region := p.heap.Region()
	n := min(int(b.Size), len(region)-int(b.Ptr))
	data, ok := buf.Slice(region, int(b.Ptr), n)
	if !ok {
		return nil, false
	}
	if p.opts.MaxPayloadBytes > 0 && len(data) > p.opts.MaxPayloadBytes {
		return data[:p.opts.MaxPayloadBytes], true
	}
	return data, false
}
