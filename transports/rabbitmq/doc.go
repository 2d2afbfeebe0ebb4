// Package rabbitmq publishes completed intercepted calls to a RabbitMQ
// topic exchange.
//
// HistoryPublisher implements history.Sink. Each completed call becomes one
// JSON message routed with "intercept.<domain>.<targetKind>", so consumers
// can bind to a single domain ("intercept.qiskit.#") or a single kind.
package rabbitmq
