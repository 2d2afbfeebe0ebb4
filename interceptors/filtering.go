package interceptors

import (
	"context"

	"github.com/glimte/intercept-go/contracts"
)

// KindFilter restricts an interceptor to the listed target kinds. Calls for
// other kinds pass through untouched. The wrapper exposes exactly the hooks
// of the wrapped interceptor.
type KindFilter struct {
	inner Interceptor
	kinds map[string]struct{}
}

// NewKindFilter wraps inner so it only sees calls to kinds
func NewKindFilter(inner Interceptor, kinds ...string) *KindFilter {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &KindFilter{inner: inner, kinds: set}
}

// Name implements Interceptor
func (f *KindFilter) Name() string {
	return f.inner.Name()
}

// Applies reports whether the filter lets calls of kind through
func (f *KindFilter) Applies(kind string) bool {
	_, ok := f.kinds[kind]
	return ok
}

// BeforeHook reports the filtered before-call hook
func (f *KindFilter) BeforeHook() (BeforeFunc, bool) {
	hook, ok := BeforeHook(f.inner)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
		if !f.Applies(record.TargetKind) {
			return nil, nil
		}
		return hook(ctx, record)
	}, true
}

// AfterHook reports the filtered after-call hook
func (f *KindFilter) AfterHook() (AfterFunc, bool) {
	hook, ok := AfterHook(f.inner)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, result any, record *contracts.CallRecord) (*contracts.CallRecord, error) {
		if !f.Applies(record.TargetKind) {
			return nil, nil
		}
		return hook(ctx, result, record)
	}, true
}
