package utils

import (
	"github.com/duke-git/lancet/v2/strutil"
)

// IsEmpty reports whether the string is blank.
func IsEmpty(s string) bool {
	return strutil.IsBlank(s)
}

// IsNotEmpty reports whether the string is non-blank.
func IsNotEmpty(s string) bool {
	return !IsEmpty(s)
}
