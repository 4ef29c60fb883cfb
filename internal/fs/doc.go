// Package fs provides filesystem abstractions for testability and fault injection.
//
// The row store spills to and loads from the local filesystem through
// [FileSystem], so tests can inject [FaultyFS] and exercise the fatal spill
// and load error paths:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("corrmatrix-spill-3", fs.Fault{FailAfterBytes: 0})
//	// inject ffs into the row store
//
// Production code uses fs.Default (which is [LocalFS]).
package fs
