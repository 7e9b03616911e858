package histeq

// EqualizeLocal equalizes samples against their own histogram and returns a
// new slice of the same length. An empty input returns an empty slice.
func EqualizeLocal(samples []uint8) []uint8 {
	out := make([]uint8, len(samples))

	equalizeInto(out, samples)

	return out
}

// EqualizeGlobal equalizes the whole stream as a single leaf.
func EqualizeGlobal(samples []uint8) []uint8 {
	return EqualizeLocal(samples)
}

// equalizeInto writes the equalized form of src into dst.
// len(dst) must equal len(src).
func equalizeInto(dst, src []uint8) {
	length := len(src)
	if length == 0 {
		return
	}

	hist := ComputeHistogram(src)
	cdf := ComputeCumulative(hist)

	for i, v := range src {
		dst[i] = cdf.Remap(v, length)
	}
}
