// Package rowstore holds the deferred lower-triangle values of a matrix
// build: one append-only buffer per row, all sharing a single element
// budget.
//
// While the builder processes row i it appends the value for column i to
// every later row j. Those buffers grow from a small initial chunk and take
// more capacity from the shared resource.Controller when they fill up. When
// the budget is exhausted, a full buffer is flushed as a checksummed segment
// to the row's spill file and reused. Draining a row reads its spill file
// once (memory-mapped), deletes it, then continues with the resident tail.
//
// A Store is not safe for concurrent use.
package rowstore
