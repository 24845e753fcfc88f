package util

import (
	"cmp"
	"fmt"
	"slices"
)

// EqualSlices reports whether a and b hold equal elements under equal.
// With ignoreOrder set, both slices are compared after sorting by their
// fmt.Sprint representation.
func EqualSlices[T any](a, b []T, equal func(x, y T) bool, ignoreOrder bool) bool {
	if len(a) != len(b) {
		return false
	}

	if ignoreOrder {
		a = sortedByPrint(a)
		b = sortedByPrint(b)
	}

	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sortedByPrint[T any](in []T) []T {
	out := append([]T(nil), in...)
	slices.SortFunc(out, func(x, y T) int {
		return cmp.Compare(fmt.Sprint(x), fmt.Sprint(y))
	})
	return out
}
