package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/heap/verify"
)

var (
	stressOps     int
	stressSeed    int64
	stressMaxSize int
)

func init() {
	cmd := newStressCmd()
	addHeapFlags(cmd, true)
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of operations")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 512, "Largest single request in bytes")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a random workload with invariant checks",
		Long: `The stress command runs a seeded random mix of alloc, zero-alloc,
realloc, and free against a heap, validating every chain invariant and every
live payload after each step. The first violation stops the run.

Example:
  heapctl stress
  heapctl stress --size 16384 --ops 100000 --seed 7
  heapctl stress --image soak.img --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
	return cmd
}

// stressReport is the JSON document printed by stress --json.
type stressReport struct {
	Seed     int64        `json:"seed"`
	Ops      int          `json:"ops"`
	Failures int          `json:"null_results"`
	Live     int          `json:"live_blocks"`
	Stats    alloc.Stats  `json:"stats"`
	Usage    *alloc.Usage `json:"usage,omitempty"`
}

type stressBlock struct {
	ptr alloc.Ptr
	tag byte
}

func runStress(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if stressMaxSize <= 0 {
		return fmt.Errorf("--max-size must be positive")
	}

	s, err := openSession(heapSize, heapImage, heapMargin)
	if err != nil {
		return err
	}

	failures, live, runErr := stress(s.a, rand.New(rand.NewSource(stressSeed)), stressOps)
	if runErr != nil {
		printError("seed %d: %v\n", stressSeed, runErr)
	}

	report := stressReport{
		Seed:     stressSeed,
		Ops:      stressOps,
		Failures: failures,
		Live:     live,
		Stats:    s.a.GetStats(),
	}
	if u, err := s.a.Usage(); err == nil {
		report.Usage = &u
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else if !quiet {
		printInfo("Stress: %d ops, seed %d, %d null results, %d live blocks\n",
			stressOps, stressSeed, failures, live)
		s.a.PrintStats(os.Stdout)
	}

	if err := s.Close(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("close heap: %w", err)
	}
	return runErr
}

// stress drives ops random operations and checks the heap after each one.
func stress(a *alloc.Allocator, rng *rand.Rand, ops int) (failures, live int, err error) {
	var blocks []stressBlock
	var tag byte

	for step := range ops {
		switch op := rng.Intn(10); {
		case op < 4:
			p := a.Alloc(uintptr(1 + rng.Intn(stressMaxSize)))
			if p == alloc.Null {
				failures++
				break
			}
			tag++
			paint(a, p, tag)
			blocks = append(blocks, stressBlock{p, tag})

		case op < 5:
			p := a.ZeroAlloc(uintptr(1+rng.Intn(16)), uintptr(1+rng.Intn(stressMaxSize/16+1)))
			if p == alloc.Null {
				failures++
				break
			}
			for _, c := range a.Bytes(p) {
				if c != 0 {
					return failures, len(blocks), fmt.Errorf("step %d: zero-alloc returned dirty memory", step)
				}
			}
			tag++
			paint(a, p, tag)
			blocks = append(blocks, stressBlock{p, tag})

		case op < 7:
			if len(blocks) == 0 {
				break
			}
			i := rng.Intn(len(blocks))
			oldLen := len(a.Bytes(blocks[i].ptr))
			n := 1 + rng.Intn(stressMaxSize)
			q := a.Realloc(blocks[i].ptr, uintptr(n))
			if q == alloc.Null {
				failures++
				q, n = blocks[i].ptr, oldLen
			}
			for _, c := range a.Bytes(q)[:min(oldLen, n)] {
				if c != blocks[i].tag {
					return failures, len(blocks), fmt.Errorf("step %d: realloc lost contents of 0x%X", step, uintptr(blocks[i].ptr))
				}
			}
			blocks[i].ptr = q
			paint(a, q, blocks[i].tag)

		default:
			if len(blocks) == 0 {
				break
			}
			i := rng.Intn(len(blocks))
			if err := a.Free(blocks[i].ptr); err != nil {
				return failures, len(blocks), fmt.Errorf("step %d: %w", step, err)
			}
			blocks = append(blocks[:i], blocks[i+1:]...)
		}

		if err := verify.Allocator(a); err != nil {
			return failures, len(blocks), fmt.Errorf("step %d: %w", step, err)
		}
		for _, b := range blocks {
			if !painted(a, b) {
				return failures, len(blocks), fmt.Errorf("step %d: block 0x%X clobbered", step, uintptr(b.ptr))
			}
		}
	}
	return failures, len(blocks), nil
}

func paint(a *alloc.Allocator, p alloc.Ptr, tag byte) {
	b := a.Bytes(p)
	for i := range b {
		b[i] = tag
	}
}

func painted(a *alloc.Allocator, b stressBlock) bool {
	data := a.Bytes(b.ptr)
	if data == nil {
		return false
	}
	for _, c := range data {
		if c != b.tag {
			return false
		}
	}
	return true
}
