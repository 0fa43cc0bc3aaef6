package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshuapare/fwheap/heap/printer"
)

// resetFlags restores every global flag to its default.
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false
	logLevel = ""
	logJSON = false
	logDir = ""
	heapSize = 4096
	heapImage = ""
	heapMargin = 0
	runPayload = false
	runNoDump = false
	runSave = ""
	dumpFormat = string(printer.FormatText)
	dumpPayload = false
	dumpMax = printer.DefaultMaxPayloadBytes
	dumpFree = true
	dumpPtr = 0
	stressOps = 200
	stressSeed = 1
	stressMaxSize = 128
}

// writeScript writes a script into the test's temp dir and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.heap")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// captureOutput runs fn with os.Stdout redirected and returns what it printed.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	saved := os.Stdout
	os.Stdout = w

	// Drain concurrently so large dumps cannot fill the pipe and block fn.
	done := make(chan string)
	go func() {
		var out bytes.Buffer
		_, _ = io.Copy(&out, r)
		done <- out.String()
	}()

	fnErr := fn()
	w.Close()
	os.Stdout = saved
	return <-done, fnErr
}

func assertJSON(t *testing.T, output string) {
	t.Helper()
	if !json.Valid([]byte(output)) {
		t.Errorf("output is not valid JSON:\n%s", output)
	}
}

func assertContains(t *testing.T, output string, want []string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q\nGot:\n%s", s, output)
		}
	}
}

func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, s := range unwanted {
		if strings.Contains(output, s) {
			t.Errorf("output unexpectedly contains %q\nGot:\n%s", s, output)
		}
	}
}
