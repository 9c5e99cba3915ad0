package utils

import (
	"github.com/bytedance/sonic"
)

// FromJSON parses a JSON string into a value of type T.
func FromJSON[T any](s string) (T, error) {
	var v T
	err := sonic.UnmarshalString(s, &v)
	return v, err
}

// MarshalString serializes a value to a JSON string.
func MarshalString(v any) (string, error) {
	return sonic.MarshalString(v)
}

// ValidString reports whether s is valid JSON.
func ValidString(s string) bool {
	return sonic.ValidString(s)
}
