package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/internal/logging"
	"github.com/glimte/intercept-go/internal/reliability"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func entry(result any) contracts.ExecutionResult {
	record := contracts.NewCallRecord("qiskit.execute", []any{"bell"}, map[string]any{"shots": 1024})
	record.Domain = "qiskit"
	record.SetExtra("circuits", []string{"bell"})
	return contracts.ExecutionResult{
		Record:      record,
		Result:      result,
		CompletedAt: time.Now().UTC(),
		Duration:    1500 * time.Millisecond,
	}
}

func TestNewHistoryPublisher(t *testing.T) {
	t.Run("declares topic exchange", func(t *testing.T) {
		ch := &mockChannel{}
		ch.On("ExchangeDeclare", DefaultExchange, "topic", true, false, false, false, amqp.Table(nil)).Return(nil)

		_, err := NewHistoryPublisher(ch)
		require.NoError(t, err)
		ch.AssertExpectations(t)
	})

	t.Run("declare failure", func(t *testing.T) {
		ch := &mockChannel{}
		ch.On("ExchangeDeclare", "calls", "topic", true, false, false, false, amqp.Table(nil)).Return(errors.New("access refused"))

		_, err := NewHistoryPublisher(ch, WithExchange("calls"))
		assert.ErrorContains(t, err, "access refused")
	})

	t.Run("nil channel", func(t *testing.T) {
		_, err := NewHistoryPublisher(nil)
		assert.Error(t, err)
	})
}

func TestHistoryPublisher_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes call event", func(t *testing.T) {
		ch := &mockChannel{}
		var published amqp.Publishing
		ch.On("PublishWithContext", ctx, "calls", "intercept.qiskit.qiskit.execute", false, false, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
			Return(nil)

		p, err := NewHistoryPublisher(ch, WithExchange("calls"), WithDeclareExchange(false))
		require.NoError(t, err)

		e := entry(map[string]any{"counts": map[string]int{"00": 512}})
		require.NoError(t, p.Handle(ctx, e))
		ch.AssertExpectations(t)

		assert.Equal(t, e.Record.ID, published.CorrelationId)
		assert.NotEmpty(t, published.MessageId)
		assert.Equal(t, "application/json", published.ContentType)
		assert.Equal(t, "qiskit", published.Headers["x-domain"])

		var event CallEvent
		require.NoError(t, json.Unmarshal(published.Body, &event))
		assert.Equal(t, "qiskit.execute", event.TargetKind)
		assert.Equal(t, int64(1500), event.DurationMs)
		assert.Equal(t, []string{"circuits"}, event.ExtraDataKeys)
		assert.False(t, event.Unserializable)
	})

	t.Run("unserializable values fall back to metadata", func(t *testing.T) {
		ch := &mockChannel{}
		var published amqp.Publishing
		ch.On("PublishWithContext", ctx, DefaultExchange, mock.Anything, false, false, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
			Return(nil)

		p, err := NewHistoryPublisher(ch, WithDeclareExchange(false))
		require.NoError(t, err)

		require.NoError(t, p.Handle(ctx, entry(make(chan int))))

		var event CallEvent
		require.NoError(t, json.Unmarshal(published.Body, &event))
		assert.True(t, event.Unserializable)
		assert.Nil(t, event.Result)
		assert.Equal(t, []string{"circuits"}, event.ExtraDataKeys)
	})

	t.Run("publish failure is returned", func(t *testing.T) {
		ch := &mockChannel{}
		ch.On("PublishWithContext", ctx, DefaultExchange, mock.Anything, false, false, mock.Anything).Return(errors.New("channel closed"))

		p, err := NewHistoryPublisher(ch, WithDeclareExchange(false))
		require.NoError(t, err)
		assert.ErrorContains(t, p.Handle(ctx, entry("ok")), "channel closed")
	})

	t.Run("retries failed publishes", func(t *testing.T) {
		ch := &mockChannel{}
		ch.On("PublishWithContext", ctx, DefaultExchange, mock.Anything, false, false, mock.Anything).Return(errors.New("channel closed")).Once()
		ch.On("PublishWithContext", ctx, DefaultExchange, mock.Anything, false, false, mock.Anything).Return(nil).Once()

		p, err := NewHistoryPublisher(ch,
			WithDeclareExchange(false),
			WithRetryPolicy(reliability.NewFixedDelay(time.Millisecond, 2)))
		require.NoError(t, err)
		require.NoError(t, p.Handle(ctx, entry("ok")))
		ch.AssertNumberOfCalls(t, "PublishWithContext", 2)
	})

	t.Run("open circuit skips the broker", func(t *testing.T) {
		ch := &mockChannel{}
		ch.On("PublishWithContext", ctx, DefaultExchange, mock.Anything, false, false, mock.Anything).Return(errors.New("channel closed"))

		p, err := NewHistoryPublisher(ch,
			WithDeclareExchange(false),
			WithCircuitBreaker(reliability.NewCircuitBreaker(
				reliability.WithFailureThreshold(1),
				reliability.WithBreakerLogger(logging.NewNop()))))
		require.NoError(t, err)

		assert.ErrorContains(t, p.Handle(ctx, entry("ok")), "channel closed")
		err = p.Handle(ctx, entry("ok"))
		var open *reliability.CircuitOpenError
		assert.ErrorAs(t, err, &open)
		ch.AssertNumberOfCalls(t, "PublishWithContext", 1)
	})

	t.Run("closed publisher rejects entries", func(t *testing.T) {
		ch := &mockChannel{}
		ch.On("Close").Return(nil).Once()

		p, err := NewHistoryPublisher(ch, WithDeclareExchange(false))
		require.NoError(t, err)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.Error(t, p.Handle(ctx, entry("ok")))
		ch.AssertExpectations(t)
	})
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "intercept.dwave.DWaveSampler", RoutingKey("dwave", "DWaveSampler"))
}
