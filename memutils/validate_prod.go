//go:build !debug_heap_utils

package memutils

const (
	// DebugMargin is the number of bytes of debug data that should be placed after
	// each allocation in heaps managed by this module
	DebugMargin int = 0
)

// WriteMagicValue writes an easy-to-identify marker across DebugMargin bytes starting at
// the provided offset into data. This method no-ops unless the debug_heap_utils build tag
// is present.
func WriteMagicValue(data []byte, offset int) {
}

// ValidateMagicValue verifies that the marker written by WriteMagicValue is still present
// at the provided offset into data. It returns true if the marker is intact and false
// otherwise. This method always returns true unless the debug_heap_utils build tag is
// present.
func ValidateMagicValue(data []byte, offset int) bool {
	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are
// returned. This method no-ops unless the debug_heap_utils build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and
// panics if it is not. This method no-ops unless the debug_heap_utils build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
}
