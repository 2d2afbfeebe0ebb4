// Package reliability provides retry policies and a circuit breaker for
// calls to external systems, such as publishing completed calls to a broker.
//
//	cb := reliability.NewCircuitBreaker(reliability.WithFailureThreshold(3))
//	err := cb.Execute(ctx, func() error {
//	    return reliability.Retry(ctx, reliability.NewExponentialBackoff(50*time.Millisecond, time.Second, 2, 3), publish)
//	})
package reliability
