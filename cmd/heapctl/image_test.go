//go:build linux || darwin

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuapare/fwheap/internal/format"
)

// newImage runs script against a fresh image file and returns its path.
func newImage(t *testing.T, script string) string {
	t.Helper()
	resetFlags()
	heapImage = filepath.Join(t.TempDir(), "board.img")
	heapSize = 8192
	quiet = true

	if err := runRun(context.Background(), []string{writeScript(t, script)}); err != nil {
		t.Fatalf("runRun() error = %v", err)
	}
	return heapImage
}

func TestImage_PersistsAcrossRuns(t *testing.T) {
	img := newImage(t, "alloc a 64\nwrite a cafef00d\n")

	st, err := os.Stat(img)
	if err != nil {
		t.Fatalf("image not created: %v", err)
	}
	if st.Size() != 8192 {
		t.Fatalf("image size = %d, want 8192", st.Size())
	}

	// Second run attaches to the same chain.
	resetFlags()
	heapImage = img
	output, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{writeScript(t, "alloc b 32\ncheck\n")})
	})
	if err != nil {
		t.Fatalf("second runRun() error = %v", err)
	}
	// a occupies 0x30..0x70, so b's header follows at 0x70.
	assertContains(t, output, []string{"alloc   b        -> 0x00000088 (32 bytes)", "check   ok"})
}

func TestDumpCommand(t *testing.T) {
	img := newImage(t, "alloc a 16\nwrite a 6677686561700000\nalloc b 16\nalloc c 16\nfree b\n")

	tests := []struct {
		name           string
		format         string
		json           bool
		payload        bool
		free           bool
		ptr            uint64
		wantErr        bool
		wantContain    []string
		wantNotContain []string
	}{
		{
			name:        "text",
			format:      "text",
			free:        true,
			wantContain: []string{"HEADER", "used", "free", "(tail)", "Blocks:  3 (1 free)"},
		},
		{
			name:           "hide free",
			format:         "text",
			free:           false,
			wantContain:    []string{"used"},
			wantNotContain: []string{" free "},
		},
		{
			name:        "payload",
			format:      "text",
			free:        true,
			payload:     true,
			wantContain: []string{"6677686561700000"},
		},
		{
			name:        "json",
			json:        true,
			free:        true,
			wantContain: []string{`"blocks"`, `"state": "free"`},
		},
		{
			name:        "hex single block",
			format:      "hex",
			free:        true,
			ptr:         0x30,
			wantContain: []string{"# header 0x00000018 (used, 16 bytes)", "|fwheap"},
		},
		{
			name:    "bad format",
			format:  "yaml",
			free:    true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			heapImage = img
			dumpFormat = tt.format
			jsonOut = tt.json
			dumpPayload = tt.payload
			dumpFree = tt.free
			dumpPtr = tt.ptr

			output, err := captureOutput(t, func() error {
				return runDump(context.Background())
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("runDump() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
			assertNotContains(t, output, tt.wantNotContain)
		})
	}
}

func TestCheckCommand(t *testing.T) {
	img := newImage(t, "alloc a 16\nalloc b 16\n")

	resetFlags()
	heapImage = img
	output, err := captureOutput(t, func() error {
		return runCheck()
	})
	if err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	assertContains(t, output, []string{"board.img: OK"})
}

func TestCheckCommand_Corrupt(t *testing.T) {
	img := newImage(t, "alloc a 16\nalloc b 16\n")

	data, err := os.ReadFile(img)
	if err != nil {
		t.Fatal(err)
	}
	// Smash the canary of a's header at 0x18.
	data[format.HeaderSize+format.HeaderMagicOffset] ^= 0xFF
	if err := os.WriteFile(img, data, 0o644); err != nil {
		t.Fatal(err)
	}

	resetFlags()
	heapImage = img
	jsonOut = true
	output, err := captureOutput(t, func() error {
		return runCheck()
	})
	if err == nil {
		t.Fatal("runCheck() should fail on a damaged image")
	}
	assertJSON(t, output)
	assertContains(t, output, []string{`"valid": false`, `"type": "Chain"`, `"offset": 24`})
}

func TestDumpCommand_MissingImage(t *testing.T) {
	resetFlags()
	heapImage = filepath.Join(t.TempDir(), "missing.img")
	if err := runDump(context.Background()); err == nil {
		t.Fatal("expected an error for a missing image")
	}
}

func TestRunCommand_SaveSnapshot(t *testing.T) {
	resetFlags()
	quiet = true
	snap := filepath.Join(t.TempDir(), "snap.img")
	runSave = snap

	if err := runRun(context.Background(), []string{writeScript(t, "alloc a 40\nalloc b 8\nfree a\n")}); err != nil {
		t.Fatalf("runRun() error = %v", err)
	}

	resetFlags()
	heapImage = snap
	output, err := captureOutput(t, func() error {
		return runCheck()
	})
	if err != nil {
		t.Fatalf("runCheck() on snapshot error = %v", err)
	}
	assertContains(t, output, []string{"snap.img: OK"})
}

func TestCheckAndDump_ReadOnlyImage(t *testing.T) {
	img := newImage(t, "alloc a 16\nwrite a 6677686561700000\n")
	if err := os.Chmod(img, 0o444); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(img)
	if err != nil {
		t.Fatal(err)
	}

	resetFlags()
	heapImage = img
	output, err := captureOutput(t, func() error {
		return runCheck()
	})
	if err != nil {
		t.Fatalf("runCheck() on read-only image error = %v", err)
	}
	assertContains(t, output, []string{"board.img: OK"})

	dumpPayload = true
	output, err = captureOutput(t, func() error {
		return runDump(context.Background())
	})
	if err != nil {
		t.Fatalf("runDump() on read-only image error = %v", err)
	}
	assertContains(t, output, []string{"6677686561700000", "(tail)"})

	after, err := os.ReadFile(img)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("inspection modified the image")
	}
}
