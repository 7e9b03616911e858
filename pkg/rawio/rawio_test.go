package rawio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histeq/pkg/rawio"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []uint8{0, 1, 2, 250, 255, 128}

	for _, name := range []string{"image.raw", "image.raw.lz4", "IMAGE.RAW.LZ4"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, rawio.WriteSamples(path, samples))

			got, resolved, err := rawio.ReadSamples(path, rawio.Options{Expected: len(samples)})
			require.NoError(t, err)
			assert.Equal(t, samples, got)
			assert.True(t, filepath.IsAbs(resolved))
		})
	}
}

func TestWriteSamples_CompressesLZ4(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	samples := bytes.Repeat([]uint8{7}, 1<<16)

	plain := filepath.Join(dir, "flat.raw")
	packed := filepath.Join(dir, "flat.raw.lz4")

	require.NoError(t, rawio.WriteSamples(plain, samples))
	require.NoError(t, rawio.WriteSamples(packed, samples))

	plainInfo, err := os.Stat(plain)
	require.NoError(t, err)

	packedInfo, err := os.Stat(packed)
	require.NoError(t, err)

	assert.Equal(t, int64(len(samples)), plainInfo.Size())
	assert.Less(t, packedInfo.Size(), plainInfo.Size())
}

func TestWriteSamples_EmptyStream(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.raw")
	require.NoError(t, rawio.WriteSamples(path, nil))

	got, _, err := rawio.ReadSamples(path, rawio.Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadSamples_PathErrors(t *testing.T) {
	t.Parallel()

	_, _, err := rawio.ReadSamples("  ", rawio.Options{})
	require.ErrorIs(t, err, rawio.ErrEmptyPath)

	_, _, err = rawio.ReadSamples("bad\x00name", rawio.Options{})
	require.ErrorIs(t, err, rawio.ErrPathContainsNUL)

	_, _, err = rawio.ReadSamples(t.TempDir(), rawio.Options{})
	require.ErrorIs(t, err, rawio.ErrDirectoryPath)

	_, _, err = rawio.ReadSamples(filepath.Join(t.TempDir(), "missing.raw"), rawio.Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadSamples_Limits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "small.raw")
	require.NoError(t, rawio.WriteSamples(path, make([]uint8, 10)))

	_, _, err := rawio.ReadSamples(path, rawio.Options{MaxSize: 9})
	require.ErrorIs(t, err, rawio.ErrInputTooLarge)

	_, _, err = rawio.ReadSamples(path, rawio.Options{MaxSize: 10, Expected: 12})
	require.ErrorIs(t, err, rawio.ErrSizeMismatch)

	got, _, err := rawio.ReadSamples(path, rawio.Options{MaxSize: 10, Expected: 10})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestReadStream_StopsAtLimit(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader(make([]uint8, 100))

	_, err := rawio.ReadStream(src, rawio.Options{MaxSize: 10})
	require.ErrorIs(t, err, rawio.ErrInputTooLarge)
	assert.Equal(t, 89, src.Len())
}

func TestWriteSamples_PathErrors(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, rawio.WriteSamples("", []uint8{1}), rawio.ErrEmptyPath)
	require.Error(t, rawio.WriteSamples(filepath.Join(t.TempDir(), "no", "such", "dir.raw"), []uint8{1}))
}

func TestDefaultOutputPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"test1.raw":             "test1_equalized_image.raw",
		"/data/scan.raw.lz4":    "/data/scan_equalized_image.raw.lz4",
		"noext":                 "noext_equalized_image",
		"dir.v2/frame":          "dir.v2/frame_equalized_image",
		"archive/frame.bin.LZ4": "archive/frame_equalized_image.bin.LZ4",
	}

	for in, want := range tests {
		assert.Equal(t, want, rawio.DefaultOutputPath(in), in)
	}
}
