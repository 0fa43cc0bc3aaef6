//go:build heapdebug

package alloc

// diagnostics selects the halting behavior: double frees, bad pointers, and
// chain corruption panic with a *HaltError after being logged.
const diagnostics = true
