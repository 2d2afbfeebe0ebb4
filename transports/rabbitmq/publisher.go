package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/history"
	"github.com/glimte/intercept-go/internal/reliability"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the exchange completed calls are published to
const DefaultExchange = "intercept.calls"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ history.Sink = (*HistoryPublisher)(nil)

// Channel is the subset of *amqp.Channel used by the publisher
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// CallEvent is the message body of a published call
type CallEvent struct {
	CallID        string         `json:"callId"`
	Domain        string         `json:"domain"`
	TargetKind    string         `json:"targetKind"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   time.Time      `json:"completedAt"`
	DurationMs    int64          `json:"durationMs"`
	Args          []any          `json:"args,omitempty"`
	Kwargs        map[string]any `json:"kwargs,omitempty"`
	ExtraData     map[string]any `json:"extraData,omitempty"`
	ExtraDataKeys []string       `json:"extraDataKeys"`
	Result        any            `json:"result,omitempty"`
	// Unserializable is set when argument or result values could not be encoded
	// and only the call metadata was published.
	Unserializable bool `json:"unserializable,omitempty"`
}

// HistoryPublisher forwards completed calls to an exchange
type HistoryPublisher struct {
	channel  Channel
	conn     *amqp.Connection
	exchange string
	declare  bool
	logger   *slog.Logger
	retry    reliability.RetryPolicy
	breaker  *reliability.CircuitBreaker
	mu       sync.Mutex
	closed   bool
}

// PublisherOption configures the HistoryPublisher
type PublisherOption func(*HistoryPublisher)

// WithExchange sets the exchange name
func WithExchange(exchange string) PublisherOption {
	return func(p *HistoryPublisher) {
		p.exchange = exchange
	}
}

// WithDeclareExchange controls whether the topic exchange is declared on start
func WithDeclareExchange(declare bool) PublisherOption {
	return func(p *HistoryPublisher) {
		p.declare = declare
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *HistoryPublisher) {
		p.logger = logger
	}
}

// WithRetryPolicy retries failed publishes. Without it every call is published once.
func WithRetryPolicy(policy reliability.RetryPolicy) PublisherOption {
	return func(p *HistoryPublisher) {
		p.retry = policy
	}
}

// WithCircuitBreaker skips publishing while the broker keeps failing
func WithCircuitBreaker(cb *reliability.CircuitBreaker) PublisherOption {
	return func(p *HistoryPublisher) {
		p.breaker = cb
	}
}

// NewHistoryPublisher creates a publisher on an open channel
func NewHistoryPublisher(channel Channel, opts ...PublisherOption) (*HistoryPublisher, error) {
	if channel == nil {
		return nil, fmt.Errorf("channel cannot be nil")
	}

	p := &HistoryPublisher{
		channel:  channel,
		exchange: DefaultExchange,
		declare:  true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.declare {
		if err := channel.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
		}
	}

	return p, nil
}

// Dial connects to the broker at url and creates a publisher on a new channel
func Dial(url string, opts ...PublisherOption) (*HistoryPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	p, err := NewHistoryPublisher(ch, opts...)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// RoutingKey returns the routing key of a call
func RoutingKey(domain, targetKind string) string {
	return "intercept." + domain + "." + targetKind
}

// Handle implements history.Sink
func (p *HistoryPublisher) Handle(ctx context.Context, result contracts.ExecutionResult) error {
	if result.Record == nil {
		return fmt.Errorf("cannot publish entry without record")
	}

	body, err := encode(result)
	if err != nil {
		return err
	}

	record := result.Record
	msg := amqp.Publishing{
		Headers: amqp.Table{
			"x-domain":      record.Domain,
			"x-target-kind": record.TargetKind,
		},
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.New().String(),
		CorrelationId: record.ID,
		Timestamp:     time.Now(),
		Type:          "intercept.call.completed",
		Body:          body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	key := RoutingKey(record.Domain, record.TargetKind)
	publish := func() error {
		return reliability.Retry(ctx, p.retry, func() error {
			return p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
		})
	}
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, publish)
	} else {
		err = publish()
	}
	if err != nil {
		return fmt.Errorf("failed to publish call %s: %w", record.ID, err)
	}

	p.logger.Debug("published call", "callId", record.ID, "exchange", p.exchange, "routingKey", key)
	return nil
}

// Close closes the channel, and the connection when the publisher dialed it
func (p *HistoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func encode(result contracts.ExecutionResult) ([]byte, error) {
	record := result.Record
	keys := make([]string, 0, len(record.ExtraData))
	for k := range record.ExtraData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	event := CallEvent{
		CallID:        record.ID,
		Domain:        record.Domain,
		TargetKind:    record.TargetKind,
		CreatedAt:     record.CreatedAt,
		CompletedAt:   result.CompletedAt,
		DurationMs:    result.Duration.Milliseconds(),
		Args:          record.Args,
		Kwargs:        record.Kwargs,
		ExtraData:     record.ExtraData,
		ExtraDataKeys: keys,
		Result:        result.Result,
	}

	body, err := json.Marshal(event)
	if err == nil {
		return body, nil
	}

	event.Args = nil
	event.Kwargs = nil
	event.ExtraData = nil
	event.Result = nil
	event.Unserializable = true
	body, err = json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call %s: %w", record.ID, err)
	}
	return body, nil
}
