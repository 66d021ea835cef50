package scanner

func IsSpace[T byte | rune](b T) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// IsBlank returns true if the line only contains white space.
func IsBlank(line []byte) bool {
	for _, b := range line {
		if !IsSpace(b) {
			return false
		}
	}
	return true
}
