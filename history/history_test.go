package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glimte/intercept-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Handle(ctx context.Context, result contracts.ExecutionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func completed(kind string, result any, d time.Duration) contracts.ExecutionResult {
	return contracts.ExecutionResult{
		Record:   contracts.NewCallRecord(kind, nil, nil),
		Result:   result,
		Duration: d,
	}
}

func TestInMemory_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps append order", func(t *testing.T) {
		h := NewInMemory()
		require.NoError(t, h.Append(ctx, completed("a", 1, 0)))
		require.NoError(t, h.Append(ctx, completed("b", 2, 0)))
		require.NoError(t, h.Append(ctx, completed("a", 3, 0)))

		entries := h.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, []any{1, 2, 3}, []any{entries[0].Result, entries[1].Result, entries[2].Result})
		assert.False(t, entries[0].CompletedAt.IsZero())

		last, ok := h.Last()
		require.True(t, ok)
		assert.Equal(t, 3, last.Result)
	})

	t.Run("rejects entry without record", func(t *testing.T) {
		h := NewInMemory()
		assert.Error(t, h.Append(ctx, contracts.ExecutionResult{Result: 1}))
		assert.Equal(t, 0, h.Len())
	})

	t.Run("entries are a copy", func(t *testing.T) {
		h := NewInMemory()
		require.NoError(t, h.Append(ctx, completed("a", 1, 0)))

		entries := h.Entries()
		entries[0].Result = "changed"
		assert.Equal(t, 1, h.Entries()[0].Result)
	})

	t.Run("by kind", func(t *testing.T) {
		h := NewInMemory()
		require.NoError(t, h.Append(ctx, completed("DWaveSampler", 1, 0)))
		require.NoError(t, h.Append(ctx, completed("EmbeddingComposite", 2, 0)))
		require.NoError(t, h.Append(ctx, completed("DWaveSampler", 3, 0)))

		byKind := h.ByKind("DWaveSampler")
		require.Len(t, byKind, 2)
		assert.Equal(t, 3, byKind[1].Result)
		assert.Empty(t, h.ByKind("LeapHybridSampler"))
	})
}

func TestInMemory_Sinks(t *testing.T) {
	ctx := context.Background()

	t.Run("sink receives appended entry", func(t *testing.T) {
		sink := &mockSink{}
		entry := completed("a", 1, 0)
		entry.CompletedAt = time.Now()
		sink.On("Handle", ctx, entry).Return(nil).Once()

		h := NewInMemory(WithSink(sink))
		require.NoError(t, h.Append(ctx, entry))
		sink.AssertExpectations(t)
	})

	t.Run("sink failure does not fail append", func(t *testing.T) {
		failing := SinkFunc(func(ctx context.Context, result contracts.ExecutionResult) error {
			return errors.New("broker down")
		})
		var seen int
		counting := SinkFunc(func(ctx context.Context, result contracts.ExecutionResult) error {
			seen++
			return nil
		})

		h := NewInMemory(WithSink(failing), WithSink(counting))
		require.NoError(t, h.Append(ctx, completed("a", 1, 0)))
		assert.Equal(t, 1, h.Len())
		assert.Equal(t, 1, seen)
	})
}

func TestInMemory_Stats(t *testing.T) {
	ctx := context.Background()
	h := NewInMemory()

	empty := h.Stats()
	assert.Equal(t, int64(0), empty.TotalEntries)
	assert.Equal(t, time.Duration(0), empty.AverageDuration)

	require.NoError(t, h.Append(ctx, completed("a", 1, 10*time.Millisecond)))
	require.NoError(t, h.Append(ctx, completed("a", 2, 30*time.Millisecond)))
	require.NoError(t, h.Append(ctx, completed("b", 3, 20*time.Millisecond)))

	stats := h.Stats()
	assert.Equal(t, int64(3), stats.TotalEntries)
	assert.Equal(t, map[string]int64{"a": 2, "b": 1}, stats.EntriesByKind)
	assert.Equal(t, 20*time.Millisecond, stats.AverageDuration)
	assert.False(t, stats.LastEntry.IsZero())

	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Stats().EntriesByKind)
}
