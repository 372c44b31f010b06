// Package fs abstracts the file operations used by the local tile store so
// that tests can inject I/O failures.
//
// Production code uses fs.Default ([LocalFS]). Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".eph", fs.Fault{FailAfterBytes: 16})
//
// Operations take no context.Context: local syscalls are not interruptible.
// Remote storage goes through blobstore, which is context-aware.
package fs
