package model

import "slices"

// fieldSet is a sorted, deduplicated list of erased field names.
type fieldSet[F ~string] []F

func (s fieldSet[F]) has(f F) bool {
	return slices.Contains(s, f)
}

func newFieldSet[F ~string](fields ...F) []F {
	out := slices.Clone(fields)
	slices.Sort(out)
	return slices.Compact(out)
}

// patchPtr returns the value a field takes after a patch. Erasure wins over
// an explicit value.
func patchPtr[T any](cur, set *T, erase bool) *T {
	if erase {
		return nil
	}
	if set != nil {
		v := *set
		return &v
	}
	return cur
}

func patchSlice[T any](cur, set []T, erase bool) []T {
	if erase {
		return nil
	}
	if set != nil {
		return slices.Clone(set)
	}
	return cur
}

// mergePtr folds a later patch's field onto an earlier one. The later
// patch decides whenever it sets or erases the field.
func mergePtr[T any](left, right *T, leftErase, rightErase bool) (*T, bool) {
	switch {
	case rightErase:
		return nil, true
	case right != nil:
		return right, false
	default:
		return left, leftErase
	}
}

func mergeSlice[T any](left, right []T, leftErase, rightErase bool) ([]T, bool) {
	switch {
	case rightErase:
		return nil, true
	case right != nil:
		return right, false
	default:
		return left, leftErase
	}
}

// fieldMerger accumulates the erasing set of a merged patch.
type fieldMerger[F ~string] struct {
	left, right fieldSet[F]
	out         []F
}

func (m *fieldMerger[F]) field(f F, apply func(leftErase, rightErase bool) bool) {
	if apply(m.left.has(f), m.right.has(f)) {
		m.out = append(m.out, f)
	}
}

func (m *fieldMerger[F]) result() []F {
	if len(m.out) == 0 {
		return nil
	}
	return newFieldSet(m.out...)
}
