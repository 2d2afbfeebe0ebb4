package contracts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallRecord carries the arguments and scratch state of one intercepted call.
// The dispatcher owns it for the duration of the call; interceptors mutate it
// in place or hand back a replacement.
type CallRecord struct {
	ID         string    `json:"id"`
	Domain     string    `json:"domain,omitempty"`
	TargetKind string    `json:"targetKind"`
	CreatedAt  time.Time `json:"createdAt"`

	// Args and Kwargs are what the original callable receives.
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`

	// ExtraData is scratch space for interceptors and the final analysis.
	// The dispatcher never reads it.
	ExtraData map[string]any `json:"extraData,omitempty"`

	// PipelineArguments is the externally supplied configuration for this run.
	PipelineArguments map[string]any `json:"pipelineArguments,omitempty"`

	ShouldTerminate bool `json:"shouldTerminate"`

	// TerminationResult is only meaningful when ShouldTerminate is true.
	TerminationResult any `json:"terminationResult,omitempty"`
}

// NewCallRecord creates a record for targetKind with empty scratch maps
func NewCallRecord(targetKind string, args []any, kwargs map[string]any) *CallRecord {
	if kwargs == nil {
		kwargs = make(map[string]any)
	}

	return &CallRecord{
		ID:                uuid.New().String(),
		TargetKind:        targetKind,
		CreatedAt:         time.Now().UTC(),
		Args:              args,
		Kwargs:            kwargs,
		ExtraData:         make(map[string]any),
		PipelineArguments: make(map[string]any),
	}
}

// Copy returns a shallow copy. The new record shares the Args slice and all
// maps with the receiver.
func (r *CallRecord) Copy() *CallRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Terminate flags the call for early termination with a substitute result
func (r *CallRecord) Terminate(result any) {
	r.ShouldTerminate = true
	r.TerminationResult = result
}

// Extra returns a value from ExtraData
func (r *CallRecord) Extra(key string) (any, bool) {
	if r.ExtraData == nil {
		return nil, false
	}
	v, ok := r.ExtraData[key]
	return v, ok
}

// SetExtra stores a value in ExtraData, creating the map if needed
func (r *CallRecord) SetExtra(key string, value any) {
	if r.ExtraData == nil {
		r.ExtraData = make(map[string]any)
	}
	r.ExtraData[key] = value
}

// PipelineArgument returns a value from PipelineArguments
func (r *CallRecord) PipelineArgument(key string) (any, bool) {
	if r.PipelineArguments == nil {
		return nil, false
	}
	v, ok := r.PipelineArguments[key]
	return v, ok
}

// String renders the call and the keys of the scratch maps. Values in the
// maps are elided.
func (r *CallRecord) String() string {
	if r == nil {
		return "CallRecord(nil)"
	}

	arguments := make([]string, 0, len(r.Args)+len(r.Kwargs))
	for _, arg := range r.Args {
		arguments = append(arguments, fmt.Sprintf("%#v", arg))
	}
	for _, key := range sortedKeys(r.Kwargs) {
		arguments = append(arguments, fmt.Sprintf("%s=%#v", key, r.Kwargs[key]))
	}

	return fmt.Sprintf("CallRecord(call='%s(%s)', extraData={%s}, pipelineArguments={%s}, shouldTerminate=%t, terminationResult=%#v)",
		r.TargetKind,
		strings.Join(arguments, ", "),
		quotedKeys(r.ExtraData),
		quotedKeys(r.PipelineArguments),
		r.ShouldTerminate,
		r.TerminationResult,
	)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quotedKeys(m map[string]any) string {
	keys := sortedKeys(m)
	for i, k := range keys {
		keys[i] = fmt.Sprintf("'%s': ...", k)
	}
	return strings.Join(keys, ", ")
}
