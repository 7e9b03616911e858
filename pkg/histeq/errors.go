package histeq

import "errors"

// Sentinel errors returned by the partitioner.
var (
	// ErrInvalidThreshold indicates a threshold below one.
	ErrInvalidThreshold = errors.New("threshold must be at least 1")
	// ErrLengthMismatch indicates input and output buffers of different lengths.
	ErrLengthMismatch = errors.New("input and output lengths differ")
	// ErrInvalidRange indicates a range outside the sample stream.
	ErrInvalidRange = errors.New("range outside sample stream")
)
