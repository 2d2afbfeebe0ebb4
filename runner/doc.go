// Package runner runs host code with a framework's interception in place.
//
// Go cannot replace a package function at run time, so host code receives
// an Environment and obtains the framework callables from it. When
// interception is on, the Environment hands out dispatcher stand-ins;
// otherwise it hands out the originals.
//
//	entryPoints := runner.NewEntryPoints()
//	entryPoints.MustRegister("examples/bell:run", func(ctx context.Context, env *runner.Environment, args []any, kwargs map[string]any) (any, error) {
//		return env.Call(ctx, qiskit.KindExecute, []any{circuit, "ibmq_lima"}, nil)
//	})
//
//	r := runner.New(frameworks, entryPoints)
//	result, err := r.Run(ctx, runner.Options{Framework: "qiskit", EntryPoint: "examples/bell:run", Intercept: true})
package runner
