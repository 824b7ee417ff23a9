package core

// ErrorCategory classifies a failure for logging and exit handling
type ErrorCategory int

const (
	ErrCategoryNone    ErrorCategory = iota // No error
	ErrCategoryElement                      // Marker absent, malformed bounds, contact not found
	ErrCategoryRetry                        // Polling budget exhausted
	ErrCategoryDevice                       // adb failure, no device, dump unavailable
	ErrCategoryApp                          // App not installed, did not reach foreground
	ErrCategoryConfig                       // Invalid configuration, missing required field
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryElement:
		return "element"
	case ErrCategoryRetry:
		return "retry"
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryApp:
		return "app"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// IsTransient reports whether a failure in this category is worth retrying.
func (c ErrorCategory) IsTransient() bool {
	return c == ErrCategoryElement || c == ErrCategoryDevice
}
