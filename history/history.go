package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glimte/intercept-go/contracts"
)

// History is the append-only log of completed calls
type History interface {
	// Append stores a completed call
	Append(ctx context.Context, result contracts.ExecutionResult) error

	// Entries returns the stored calls in append order
	Entries() []contracts.ExecutionResult

	// Len returns the number of stored calls
	Len() int
}

// Sink is notified of every appended entry
type Sink interface {
	Handle(ctx context.Context, result contracts.ExecutionResult) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, result contracts.ExecutionResult) error

// Handle implements Sink
func (f SinkFunc) Handle(ctx context.Context, result contracts.ExecutionResult) error {
	return f(ctx, result)
}

// Stats summarizes a history
type Stats struct {
	TotalEntries    int64            `json:"totalEntries"`
	EntriesByKind   map[string]int64 `json:"entriesByKind"`
	AverageDuration time.Duration    `json:"averageDuration"`
	LastEntry       time.Time        `json:"lastEntry"`
}

// InMemory is the process-local History implementation
type InMemory struct {
	entries []contracts.ExecutionResult
	byKind  map[string][]int
	sinks   []Sink
	mu      sync.RWMutex
	logger  *slog.Logger
}

// InMemoryOption configures the in-memory history
type InMemoryOption func(*InMemory)

// WithSink adds a sink notified after each append
func WithSink(sink Sink) InMemoryOption {
	return func(h *InMemory) {
		if sink != nil {
			h.sinks = append(h.sinks, sink)
		}
	}
}

// WithHistoryLogger sets the logger used for sink failures
func WithHistoryLogger(logger *slog.Logger) InMemoryOption {
	return func(h *InMemory) {
		h.logger = logger
	}
}

// NewInMemory creates an empty in-memory history
func NewInMemory(opts ...InMemoryOption) *InMemory {
	h := &InMemory{
		entries: make([]contracts.ExecutionResult, 0),
		byKind:  make(map[string][]int),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Append stores a completed call and forwards it to the sinks. A sink
// failure is logged and does not undo the append.
func (h *InMemory) Append(ctx context.Context, result contracts.ExecutionResult) error {
	if result.Record == nil {
		return fmt.Errorf("history entry requires a record")
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}

	h.mu.Lock()
	h.entries = append(h.entries, result)
	kind := result.Record.TargetKind
	h.byKind[kind] = append(h.byKind[kind], len(h.entries)-1)
	sinks := h.sinks
	h.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Handle(ctx, result); err != nil {
			h.logger.Error("history sink failed",
				"callId", result.Record.ID,
				"targetKind", kind,
				"error", err,
			)
		}
	}

	return nil
}

// Entries returns a copy of the stored calls in append order
func (h *InMemory) Entries() []contracts.ExecutionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]contracts.ExecutionResult, len(h.entries))
	copy(out, h.entries)
	return out
}

// ByKind returns the stored calls for one target kind
func (h *InMemory) ByKind(kind string) []contracts.ExecutionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	indexes := h.byKind[kind]
	out := make([]contracts.ExecutionResult, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, h.entries[i])
	}
	return out
}

// Last returns the most recent entry
func (h *InMemory) Last() (contracts.ExecutionResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return contracts.ExecutionResult{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of stored calls
func (h *InMemory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Stats returns history statistics
func (h *InMemory) Stats() *Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := &Stats{
		TotalEntries:  int64(len(h.entries)),
		EntriesByKind: make(map[string]int64, len(h.byKind)),
	}

	var total time.Duration
	for _, e := range h.entries {
		total += e.Duration
		if e.CompletedAt.After(stats.LastEntry) {
			stats.LastEntry = e.CompletedAt
		}
	}
	for kind, indexes := range h.byKind {
		stats.EntriesByKind[kind] = int64(len(indexes))
	}
	if len(h.entries) > 0 {
		stats.AverageDuration = total / time.Duration(len(h.entries))
	}

	return stats
}

// Reset drops every entry. Sinks are kept.
func (h *InMemory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make([]contracts.ExecutionResult, 0)
	h.byKind = make(map[string][]int)
}
