//go:build debug_mem_utils

package memutils

// DebugValidate calls Validate on validatable after each metadata change and panics if it fails.
// It does nothing unless the debug_mem_utils build tag is present.
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
