// Package contracts provides the core types shared by every part of the interception pipeline.
//
// This package defines the values that flow through a dispatch:
//   - CallRecord: the mutable per-invocation state handed to each interceptor
//   - Callable: the uniform shape of an intercepted function and of its stand-in
//   - ExecutionResult: one completed call as stored in the execution history
//   - Outcome: the tagged result of a dispatch (completed or terminated)
//
// It also holds the error taxonomy. ConfigurationError is fatal,
// SignatureMismatchWarning is advisory, InterruptError carries a terminated call
// back to the outer runner, and HookError wraps a failing interceptor hook.
// Errors raised by the intercepted function itself are never wrapped.
package contracts
