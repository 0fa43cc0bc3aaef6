package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/heap/cstr"
	"github.com/joshuapare/fwheap/heap/printer"
	"github.com/joshuapare/fwheap/heap/verify"
)

// ErrExpect indicates an expect line whose bytes did not match.
var ErrExpect = errors.New("expectation failed")

// instr is one parsed script line.
type instr struct {
	Line int
	Op   string
	Args []string
}

// opArity is the argument count per op. text takes a name plus the rest of
// the line.
var opArity = map[string]int{
	"alloc":   2, // alloc NAME BYTES
	"calloc":  3, // calloc NAME COUNT SIZE
	"realloc": 2, // realloc NAME BYTES
	"free":    1, // free NAME
	"write":   2, // write NAME HEX
	"expect":  2, // expect NAME HEX
	"text":    2, // text NAME STRING...
	"show":    1, // show NAME
	"defrag":  0,
	"check":   0,
	"dump":    0,
	"stats":   0,
}

// parseScript reads a line-oriented heap script. Blank lines and lines
// starting with # are skipped.
func parseScript(r io.Reader) ([]instr, error) {
	var out []instr
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		op := strings.ToLower(fields[0])
		want, ok := opArity[op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown op %q", line, fields[0])
		}

		args := fields[1:]
		if op == "text" && len(args) >= 1 {
			rest := strings.TrimSpace(text[len(fields[0]):])
			rest = strings.TrimSpace(rest[len(args[0]):])
			args = []string{args[0], rest}
		}
		if len(args) != want {
			return nil, fmt.Errorf("line %d: %s takes %d argument(s), got %d", line, op, want, len(args))
		}
		out = append(out, instr{Line: line, Op: op, Args: args})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// stepResult is the outcome of one executed line.
type stepResult struct {
	Line   int       `json:"line"`
	Op     string    `json:"op"`
	Name   string    `json:"name,omitempty"`
	Ptr    alloc.Ptr `json:"ptr,omitempty"`
	Size   uintptr   `json:"size,omitempty"`
	Null   bool      `json:"null,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func (r stepResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%4d  %-7s", r.Line, r.Op)
	if r.Name != "" {
		fmt.Fprintf(&sb, " %-8s", r.Name)
	}
	switch {
	case r.Null:
		sb.WriteString(" -> NULL")
	case r.Ptr != alloc.Null:
		fmt.Fprintf(&sb, " -> 0x%08X (%d bytes)", uintptr(r.Ptr), r.Size)
	}
	if r.Detail != "" {
		fmt.Fprintf(&sb, " %s", r.Detail)
	}
	return sb.String()
}

// runner executes instructions against one allocator. Names bind script
// identifiers to pointers; a failed realloc keeps the old binding.
type runner struct {
	a     *alloc.Allocator
	names map[string]alloc.Ptr
	out   io.Writer
	opts  printer.Options
}

func newRunner(a *alloc.Allocator, out io.Writer, opts printer.Options) *runner {
	return &runner{a: a, names: make(map[string]alloc.Ptr), out: out, opts: opts}
}

// run executes every instruction, stopping at the first hard failure.
// Null results and release errors are reported, not fatal.
func (r *runner) run(prog []instr) ([]stepResult, error) {
	results := make([]stepResult, 0, len(prog))
	for _, in := range prog {
		res, err := r.step(in)
		if err != nil {
			return results, fmt.Errorf("line %d: %s: %w", in.Line, in.Op, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *runner) step(in instr) (stepResult, error) {
	res := stepResult{Line: in.Line, Op: in.Op}
	if len(in.Args) > 0 {
		res.Name = in.Args[0]
	}

	switch in.Op {
	case "alloc":
		n, err := parseSize(in.Args[1])
		if err != nil {
			return res, err
		}
		r.bind(&res, r.a.Alloc(n))

	case "calloc":
		count, err := parseSize(in.Args[1])
		if err != nil {
			return res, err
		}
		size, err := parseSize(in.Args[2])
		if err != nil {
			return res, err
		}
		r.bind(&res, r.a.ZeroAlloc(count, size))

	case "realloc":
		n, err := parseSize(in.Args[1])
		if err != nil {
			return res, err
		}
		old := r.names[res.Name]
		q := r.a.Realloc(old, n)
		if q == alloc.Null && n != 0 {
			res.Null = true
			res.Detail = "(original kept)"
			break
		}
		r.bind(&res, q)
		if n == 0 {
			res.Null = false
			res.Detail = "(freed)"
		}

	case "free":
		p, err := r.lookup(res.Name)
		if err != nil {
			return res, err
		}
		res.Detail = fmt.Sprintf("0x%08X", uintptr(p))
		if err := r.a.Free(p); err != nil {
			res.Detail += " " + err.Error()
		}

	case "write":
		b, err := r.payload(res.Name)
		if err != nil {
			return res, err
		}
		data, err := hex.DecodeString(in.Args[1])
		if err != nil {
			return res, fmt.Errorf("bad hex: %w", err)
		}
		if len(data) > len(b) {
			return res, fmt.Errorf("%d bytes do not fit in a %d byte block", len(data), len(b))
		}
		copy(b, data)
		res.Detail = fmt.Sprintf("%d bytes", len(data))

	case "expect":
		b, err := r.payload(res.Name)
		if err != nil {
			return res, err
		}
		want, err := hex.DecodeString(in.Args[1])
		if err != nil {
			return res, fmt.Errorf("bad hex: %w", err)
		}
		if len(want) > len(b) || !bytes.Equal(b[:len(want)], want) {
			got := b[:min(len(want), len(b))]
			return res, fmt.Errorf("%w: %s holds %x, want %x", ErrExpect, res.Name, got, want)
		}
		res.Detail = "ok"

	case "text":
		p, err := cstr.Replace(r.a, r.names[res.Name], in.Args[1])
		if err != nil {
			return res, err
		}
		r.bind(&res, p)

	case "show":
		p, err := r.lookup(res.Name)
		if err != nil {
			return res, err
		}
		s, err := cstr.Load(r.a, p)
		if err != nil {
			return res, err
		}
		res.Detail = strconv.Quote(s)

	case "defrag":
		if err := r.a.Defragment(); err != nil {
			return res, err
		}

	case "check":
		if err := verify.Allocator(r.a); err != nil {
			return res, err
		}
		res.Detail = "ok"

	case "dump":
		if err := printer.New(r.a, r.out, r.opts).PrintChain(); err != nil {
			return res, err
		}

	case "stats":
		r.a.PrintStats(r.out)
	}
	return res, nil
}

func (r *runner) bind(res *stepResult, p alloc.Ptr) {
	r.names[res.Name] = p
	res.Ptr = p
	res.Size = r.a.SizeOf(p)
	res.Null = p == alloc.Null
}

func (r *runner) lookup(name string) (alloc.Ptr, error) {
	p, ok := r.names[name]
	if !ok {
		return alloc.Null, fmt.Errorf("unknown name %q", name)
	}
	return p, nil
}

func (r *runner) payload(name string) ([]byte, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	b := r.a.Bytes(p)
	if b == nil {
		return nil, fmt.Errorf("%s (0x%X) is not an in-use block", name, uintptr(p))
	}
	return b, nil
}

// parseSize accepts decimal, 0x hex, and 0o/0b forms.
func parseSize(s string) (uintptr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad size %q: %w", s, err)
	}
	if uint64(uintptr(v)) != v {
		return 0, fmt.Errorf("size %q exceeds address width", s)
	}
	return uintptr(v), nil
}
