package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// CheckRange verifies that number falls within [minimum, maximum] and returns an error wrapping
// SizeOutOfRangeError if it does not
func CheckRange[T Number](number, minimum, maximum T, name string) error {
	if number < minimum || number > maximum {
		return cerrors.Wrapf(SizeOutOfRangeError, "%s is %d, valid range is %d-%d", name, number, minimum, maximum)
	}
	return nil
}
