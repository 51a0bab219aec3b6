package pointer

func To[T any](v T) *T {
	return &v
}

func DerefOrZero[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
