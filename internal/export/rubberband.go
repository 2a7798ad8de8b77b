package export

// RubberBand appends the reversed interior of frames so the sequence returns
// to its first frame: [A B C D] becomes [A B C D C B]. Sequences shorter than
// three frames have no interior and are returned as a copy.
func RubberBand[T any](frames []T) []T {
	n := len(frames)
	out := make([]T, 0, max(n, 2*n-2))
	out = append(out, frames...)
	if n < 3 {
		return out
	}
	for i := n - 2; i >= 1; i-- {
		out = append(out, frames[i])
	}
	return out
}
