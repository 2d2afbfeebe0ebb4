// Package dispatch runs one intercepted call from start to finish.
//
// A Dispatcher owns the target bindings of one domain. Each call builds a
// fresh CallRecord, runs the before-call hooks in registry order, invokes
// the bound original unless a hook terminated the call, runs the after-call
// hooks, and appends the completed call to the history.
//
// Callers that want the original calling convention use StandIn, which
// returns the plain result or a *contracts.InterruptError on termination.
// Callers that prefer a value use Dispatch and inspect the Outcome:
//
//	outcome, err := d.Dispatch(ctx, "add", []any{3}, map[string]any{"b": 4})
//	if err != nil {
//		return err
//	}
//	if outcome.IsTerminated() {
//		fmt.Println(outcome.Record.TerminationResult)
//	}
package dispatch
