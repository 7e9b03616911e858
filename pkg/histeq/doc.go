// Package histeq implements divide-and-conquer histogram equalization of
// single-plane 8-bit sample streams.
//
// The stream is bisected until every sub-range is shorter than a threshold.
// Each leaf is equalized with its own local histogram and written into the
// matching region of a caller-owned output buffer. Leaves never share
// histograms, so the result depends on the threshold: a threshold larger
// than the stream yields plain global equalization.
package histeq
