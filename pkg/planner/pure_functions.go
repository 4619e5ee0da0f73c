package planner

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/lister"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/manifest"
)

// Compare classifies source and destination names by membership and size.
func Compare(source manifest.Manifest, dest lister.Listing) Comparison {
	result := Comparison{
		New:          []ItemRef{},
		SizeMismatch: []ItemRef{},
		SameSize:     []ItemRef{},
		Extra:        []ItemRef{},
	}

	for name, entry := range source {
		ref := ItemRef{Name: name, Size: entry.Size()}
		destSize, exists := dest[name]
		switch {
		case !exists:
			result.New = append(result.New, ref)
		case destSize != entry.Size():
			result.SizeMismatch = append(result.SizeMismatch, ref)
		default:
			result.SameSize = append(result.SameSize, ref)
		}
	}

	for name, size := range dest {
		if _, exists := source[name]; !exists {
			result.Extra = append(result.Extra, ItemRef{Name: name, Size: size})
		}
	}

	sortComparison(&result)
	return result
}

// Compute builds the plan that turns dest into an exact mirror of source.
// Deletion is decided by name alone, under every policy.
func Compute(source manifest.Manifest, dest lister.Listing, opts Options) (Plan, error) {
	source, dest, err := applyExcludes(source, dest, opts.Excludes)
	if err != nil {
		return Plan{}, err
	}

	keyPrefix := lister.KeyPrefix(opts.Prefix)
	cmp := Compare(source, dest)

	plan := Plan{
		ToUpload: []string{},
		ToDelete: []string{},
		Items:    []Item{},
	}

	upload := func(ref ItemRef, reason string) {
		plan.ToUpload = append(plan.ToUpload, ref.Name)
		plan.Items = append(plan.Items, Item{
			Action: ActionUpload,
			Name:   ref.Name,
			Key:    keyPrefix + ref.Name,
			Size:   ref.Size,
			Reason: reason,
		})
	}

	switch opts.Policy {
	case PolicyAlwaysRefresh:
		for _, ref := range cmp.New {
			upload(ref, ReasonNewFile)
		}
		for _, ref := range cmp.SizeMismatch {
			upload(ref, ReasonSizeDiffer)
		}
		for _, ref := range cmp.SameSize {
			upload(ref, ReasonRefresh)
		}
	case PolicySizeGated:
		for _, ref := range cmp.New {
			upload(ref, ReasonNewFile)
		}
		for _, ref := range cmp.SizeMismatch {
			upload(ref, ReasonSizeDiffer)
		}
	default:
		return Plan{}, errors.Errorf("unknown change-detection policy %q", opts.Policy)
	}

	for _, ref := range cmp.Extra {
		plan.ToDelete = append(plan.ToDelete, ref.Name)
		plan.Items = append(plan.Items, Item{
			Action: ActionDelete,
			Name:   ref.Name,
			Key:    keyPrefix + ref.Name,
			Size:   ref.Size,
			Reason: ReasonNotListed,
		})
	}

	sort.Strings(plan.ToUpload)
	sort.Strings(plan.ToDelete)
	sort.SliceStable(plan.Items, func(i, j int) bool {
		if plan.Items[i].Action != plan.Items[j].Action {
			return plan.Items[i].Action == ActionUpload
		}
		return plan.Items[i].Name < plan.Items[j].Name
	})

	return plan, nil
}

func applyExcludes(source manifest.Manifest, dest lister.Listing, patterns []string) (manifest.Manifest, lister.Listing, error) {
	if len(patterns) == 0 {
		return source, dest, nil
	}
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, nil, errors.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	filteredSource := make(manifest.Manifest, len(source))
	for name, entry := range source {
		excluded, err := IsExcluded(name, patterns)
		if err != nil {
			return nil, nil, err
		}
		if !excluded {
			filteredSource[name] = entry
		}
	}

	filteredDest := make(lister.Listing, len(dest))
	for name, size := range dest {
		excluded, err := IsExcluded(name, patterns)
		if err != nil {
			return nil, nil, err
		}
		if !excluded {
			filteredDest[name] = size
		}
	}

	return filteredSource, filteredDest, nil
}

func sortComparison(result *Comparison) {
	sortItemRefs := func(refs []ItemRef) {
		sort.Slice(refs, func(i, j int) bool {
			return refs[i].Name < refs[j].Name
		})
	}

	sortItemRefs(result.New)
	sortItemRefs(result.SizeMismatch)
	sortItemRefs(result.SameSize)
	sortItemRefs(result.Extra)
}

func IsExcluded(name string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
