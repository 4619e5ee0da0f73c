package planner

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Policy decides which source entries are uploaded.
type Policy string

const (
	// PolicyAlwaysRefresh uploads every source entry on every run.
	PolicyAlwaysRefresh Policy = "always-refresh"

	// PolicySizeGated uploads an entry only when the destination lacks it
	// or holds a different size. A content change that keeps the byte size
	// is not detected.
	PolicySizeGated Policy = "size-gated"
)

// ParsePolicy resolves a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAlwaysRefresh, PolicySizeGated:
		return p, nil
	default:
		return "", errors.Errorf("unknown change-detection policy %q (want %s or %s)", s, PolicyAlwaysRefresh, PolicySizeGated)
	}
}

type Options struct {
	Policy Policy
	// Prefix is the destination prefix; Items carry prefix+name as Key.
	Prefix string
	// Excludes are doublestar patterns matched against names. Excluded
	// names are neither uploaded nor deleted.
	Excludes []string
}

type Action string

const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
)

const (
	ReasonNewFile    = "new file"
	ReasonSizeDiffer = "size differs"
	ReasonRefresh    = "refresh"
	ReasonNotListed  = "not in source"
)

type Item struct {
	Action Action
	Name   string
	Key    string
	Size   int64
	Reason string
}

type ItemRef struct {
	Name string
	Size int64
}

// Comparison classifies every name seen on either side.
type Comparison struct {
	New          []ItemRef
	SizeMismatch []ItemRef
	SameSize     []ItemRef
	Extra        []ItemRef
}

// Plan is what the executor must do. ToUpload and ToDelete are sorted, so
// two plans for the same inputs are equal regardless of map iteration order.
type Plan struct {
	ToUpload []string
	ToDelete []string
	Items    []Item
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.ToUpload) == 0 && len(p.ToDelete) == 0
}
