package utils

// Value dereferences v, returning the zero value of T for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// ValueOr dereferences v, returning fallback for nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// Assign copies *src into *dst when src is set. It reports whether a copy happened.
func Assign[T any](dst *T, src *T) bool {
	if src == nil || dst == nil {
		return false
	}
	*dst = *src
	return true
}
