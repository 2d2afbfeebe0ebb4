package signature

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/glimte/intercept-go/contracts"
)

// MatchMode selects how strictly a signature is compared
type MatchMode int

const (
	// MatchExact compares names, kinds and defaults
	MatchExact MatchMode = iota
	// MatchNames compares names and kinds only
	MatchNames
)

// Entry is one known-compatible signature of a wrapped library version
type Entry struct {
	Version   *semver.Version
	Signature Signature
	Mode      MatchMode
}

// Matches reports whether sig is compatible with the entry
func (e Entry) Matches(sig Signature) bool {
	if e.Mode == MatchNames {
		return e.Signature.NamesEqual(sig)
	}
	return e.Signature.Equal(sig)
}

// AllowList holds the known-compatible signatures for one target kind
type AllowList struct {
	kind    string
	entries []Entry
	mu      sync.RWMutex
}

// NewAllowList creates an empty allow-list for kind
func NewAllowList(kind string) *AllowList {
	return &AllowList{kind: kind}
}

// Kind returns the target kind the list belongs to
func (a *AllowList) Kind() string {
	return a.kind
}

// Add registers sig as compatible for the given library version
func (a *AllowList) Add(version string, sig Signature, mode MatchMode) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid version %q for %s: %w", version, a.kind, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, Entry{Version: v, Signature: sig, Mode: mode})
	sort.SliceStable(a.entries, func(i, j int) bool {
		return a.entries[i].Version.GreaterThan(a.entries[j].Version)
	})
	return nil
}

// MustAdd is Add for package-level declarations; it panics on a bad version
func (a *AllowList) MustAdd(version string, sig Signature, mode MatchMode) *AllowList {
	if err := a.Add(version, sig, mode); err != nil {
		panic(err)
	}
	return a
}

// Match returns the newest entry compatible with sig
func (a *AllowList) Match(sig Signature) (Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, e := range a.entries {
		if e.Matches(sig) {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchConstraint is Match restricted to versions satisfying constraint (e.g. "^0.46")
func (a *AllowList) MatchConstraint(constraint string, sig Signature) (Entry, bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, e := range a.entries {
		if c.Check(e.Version) && e.Matches(sig) {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Check returns a warning when sig matches no entry, nil otherwise
func (a *AllowList) Check(sig Signature) *contracts.SignatureMismatchWarning {
	if _, ok := a.Match(sig); ok {
		return nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	allowed := make([]string, len(a.entries))
	for i, e := range a.entries {
		allowed[i] = e.Signature.String()
	}
	return &contracts.SignatureMismatchWarning{
		TargetKind: a.kind,
		Got:        sig.String(),
		Allowed:    allowed,
	}
}

// Versions returns the known library versions, newest first
func (a *AllowList) Versions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions := make([]string, len(a.entries))
	for i, e := range a.entries {
		versions[i] = e.Version.String()
	}
	return versions
}

// Len returns the number of entries
func (a *AllowList) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}
