//go:build !heapdebug

package alloc

// diagnostics is off in normal builds: misuse is logged and reported through
// return values, and the chain is left as it was.
const diagnostics = false
