package dispatch

import (
	"fmt"
	"time"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/signature"
)

// TargetBinding ties a target kind to the original callable it stands in for
type TargetBinding struct {
	Kind      string
	Original  contracts.Callable
	Signature signature.Signature
	BoundAt   time.Time

	// Mismatch is set when Signature is not on the allow-list. The binding is
	// usable either way.
	Mismatch *contracts.SignatureMismatchWarning
}

// Compatible reports whether the signature matched the allow-list
func (b *TargetBinding) Compatible() bool {
	return b.Mismatch == nil
}

func newBinding(kind string, original contracts.Callable, sig signature.Signature, allowed *signature.AllowList) (*TargetBinding, error) {
	if kind == "" {
		return nil, fmt.Errorf("%w: target kind cannot be empty", contracts.ErrInvalidBinding)
	}
	if original == nil {
		return nil, fmt.Errorf("%w: original callable for %s cannot be nil", contracts.ErrInvalidBinding, kind)
	}

	b := &TargetBinding{
		Kind:      kind,
		Original:  original,
		Signature: sig,
		BoundAt:   time.Now().UTC(),
	}
	if allowed != nil {
		b.Mismatch = allowed.Check(sig)
		if b.Mismatch != nil {
			b.Mismatch.TargetKind = kind
		}
	}
	return b, nil
}
