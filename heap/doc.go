// Package heap provides the memory regions the firmware allocator manages.
//
// # Overview
//
// On the board, the heap is the range between the end of the linked image
// and the stack limit, reserved by the linker layout. On a host, a Region
// stands in for that range: an anonymous mapping, a caller-provided byte
// slice, or a file-backed heap image that can be inspected after the fact.
//
// The allocator in heap/alloc never discovers memory on its own. It is handed
// the bytes returned by Region.Arena and treats them as the whole world.
//
// # Opening a Region
//
//	r, err := heap.New(64 * 1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	a := alloc.New(nil)
//	a.Setup(r.Arena(heap.DefaultSafetyMargin))
//
// # Heap Images
//
// Create and Open map a file read-write and shared, so every header the
// allocator writes lands in the file. Sync and SyncRange flush dirty pages;
// the heap/dirty tracker drives SyncRange with the ranges the allocator
// reported.
//
// # Thread Safety
//
// Region is not safe for concurrent use. The allocator built on top of it
// assumes a single execution context.
package heap
