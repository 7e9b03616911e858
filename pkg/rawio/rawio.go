// Package rawio reads and writes headerless 8-bit sample streams, optionally
// wrapped in an LZ4 frame when the file name ends in ".lz4".
package rawio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
)

// CompressedExt marks files stored as an LZ4 frame.
const CompressedExt = ".lz4"

// outputSuffix is appended to the input base name to derive an output name.
const outputSuffix = "_equalized_image"

var (
	// ErrDirectoryPath indicates a file operation was attempted on a directory.
	ErrDirectoryPath = errors.New("path points to a directory")
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
	// ErrInputTooLarge indicates the stream exceeds the configured size limit.
	ErrInputTooLarge = errors.New("input exceeds size limit")
	// ErrSizeMismatch indicates the stream length differs from the expected raster size.
	ErrSizeMismatch = errors.New("input length does not match expected size")
)

// Options bounds what a read accepts.
type Options struct {
	// MaxSize is the largest accepted decoded stream in bytes. Zero disables the limit.
	MaxSize int64

	// Expected is the exact required sample count. Zero accepts any length.
	Expected int
}

// IsCompressed reports whether path names an LZ4-framed stream.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompressedExt)
}

// ReadSamples reads the whole stream at path and returns it together with
// the resolved absolute path.
func ReadSamples(path string, opts Options) (samples []uint8, resolvedPath string, err error) {
	resolvedPath, err = ResolveInputPath(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	//nolint:gosec // resolvedPath is normalized and existence/type checked in ResolveInputPath.
	file, err := os.Open(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", resolvedPath, err)
	}
	defer file.Close()

	var src io.Reader = file
	if IsCompressed(resolvedPath) {
		src = lz4.NewReader(file)
	}

	samples, err = ReadStream(src, opts)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", resolvedPath, err)
	}

	return samples, resolvedPath, nil
}

// ReadStream drains r, enforcing opts. At most MaxSize+1 bytes are consumed.
func ReadStream(r io.Reader, opts Options) ([]uint8, error) {
	if opts.MaxSize > 0 {
		r = io.LimitReader(r, opts.MaxSize+1)
	}

	samples, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	if opts.MaxSize > 0 && int64(len(samples)) > opts.MaxSize {
		return nil, fmt.Errorf("%w: more than %s", ErrInputTooLarge, humanize.IBytes(uint64(opts.MaxSize)))
	}

	if opts.Expected > 0 && len(samples) != opts.Expected {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrSizeMismatch, len(samples), opts.Expected)
	}

	return samples, nil
}

// WriteSamples creates or truncates path and writes samples to it.
func WriteSamples(path string, samples []uint8) (err error) {
	cleanPath, err := cleanUserPath(path)
	if err != nil {
		return fmt.Errorf("resolve path %q: %w", path, err)
	}

	//nolint:gosec // cleanPath is normalized by cleanUserPath.
	file, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", cleanPath, err)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", cleanPath, closeErr)
		}
	}()

	if !IsCompressed(cleanPath) {
		_, err = file.Write(samples)
		if err != nil {
			return fmt.Errorf("write %s: %w", cleanPath, err)
		}

		return nil
	}

	zw := lz4.NewWriter(file)

	_, err = zw.Write(samples)
	if err != nil {
		return fmt.Errorf("compress %s: %w", cleanPath, err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("finish lz4 frame %s: %w", cleanPath, err)
	}

	return nil
}

// DefaultOutputPath derives "<base>_equalized_image<ext>" next to input,
// keeping a trailing ".lz4" so compressed inputs produce compressed outputs.
func DefaultOutputPath(input string) string {
	trailer := ""

	if IsCompressed(input) {
		trailer = input[len(input)-len(CompressedExt):]
		input = input[:len(input)-len(CompressedExt)]
	}

	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)

	return base + outputSuffix + ext + trailer
}
