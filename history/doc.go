// Package history keeps the ordered log of completed calls for one domain.
//
// Only calls that reached the original callable are appended. Terminated
// calls leave the log untouched. Entries are never modified or removed
// except through Reset, which exists for test setup.
//
// Sinks receive every appended entry after it is stored:
//
//	h := history.NewInMemory(history.WithSink(publisher))
//	dispatcher := dispatch.NewDispatcher("qiskit", dispatch.WithHistory(h))
package history
