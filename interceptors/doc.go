// Package interceptors provides the plugin side of the interception pipeline.
//
// An interceptor observes or mutates one intercepted call. It exposes up to
// two capabilities:
//   - BeforeCallInterceptor: runs before the original callable; may rewrite
//     arguments, fill ExtraData, or terminate the call with a substitute result
//   - AfterCallInterceptor: runs after a successful original call; may inspect
//     the result and annotate ExtraData, but cannot cancel the call
//
// An interceptor implementing neither capability is legal; it is skipped in
// both phases without being treated as an error.
//
// Interceptors are registered against a Registry with a numeric priority.
// The registry hands them out in descending priority order (ties keep
// registration order), re-sorting lazily after new registrations.
//
// Built-in interceptors:
//   - LoggingInterceptor: logs each phase with the call id
//   - ExtractInterceptor: derives values from the call into ExtraData
//   - ArgumentInjector: swaps a call argument for one named in the pipeline arguments
//   - DryRunInterceptor: terminates every call with a substitute result
//   - KindFilter: restricts another interceptor to selected target kinds
//
// Example usage:
//
//	registry := interceptors.NewRegistry()
//	registry.MustRegister(interceptors.PriorityExtract, extractor)
//	registry.MustRegister(interceptors.PriorityDryRun, interceptors.NewDryRunInterceptor(nil))
//
// Custom interceptors implement Name plus one or both hooks:
//
//	type DoubleB struct{}
//
//	func (DoubleB) Name() string { return "DoubleB" }
//
//	func (DoubleB) BeforeCall(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
//		record.Kwargs["b"] = record.Kwargs["b"].(int) * 2
//		return nil, nil
//	}
//
// Returning a nil record keeps the in-place mutations. Returning a different
// record replaces the working record; carrying ExtraData over is the
// interceptor's job (use CallRecord.Copy).
package interceptors
