package helpers

// IfElse returns valueIfTrue or valueIfFalse depending on isTrue.
func IfElse[V any](isTrue bool, valueIfTrue, valueIfFalse V) V {
	if isTrue {
		return valueIfTrue
	}
	return valueIfFalse
}

// FirstNonEmpty returns the first of the values that is not the zero value, or the zero value if
// there is none.
func FirstNonEmpty[V comparable](values ...V) V {
	var empty V
	for _, v := range values {
		if v != empty {
			return v
		}
	}
	return empty
}
