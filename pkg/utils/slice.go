package utils

import (
	"github.com/duke-git/lancet/v2/slice"
)

// SliceUnique removes duplicate elements, preserving first-seen order.
func SliceUnique[T comparable](s []T) []T {
	return slice.Unique(s)
}
