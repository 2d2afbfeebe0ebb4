// Package framework bundles everything one interception domain needs: its
// targets, its default interceptors, its dry-run interceptor and the
// dispatcher that ties them together.
//
// Domains are registered by name in a Registry and resolved lazily:
//
//	reg := framework.NewRegistry()
//	reg.RegisterDomain(qiskit.New())
//
//	fw, err := reg.Resolve("qiskit")
//	if err != nil {
//		return err // *contracts.ConfigurationError listing the known names
//	}
//	fw.LoadInterceptors()
//	fw.Patch(map[string]framework.Original{qiskit.KindExecute: {Call: execute}})
//
// Framework names are case-insensitive and stored upper case.
package framework
