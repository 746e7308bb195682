package math

// Maximum calculates the maximum value among two integers
func Maximum(a int, b int) int {
	if a > b {
		return a
	}
	return b
}

//Minimum calculates the minimum value among two integers
func Minimum(a int, b int) int {
	if a > b {
		return b
	}
	return a
}

//Clamp bounds an integer to the [lo, hi] interval
func Clamp(v int, lo int, hi int) int {
	return Maximum(lo, Minimum(v, hi))
}
