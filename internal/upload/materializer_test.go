package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriber/internal/storage"
)

func newFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	headers := form.File["files"]
	require.Len(t, headers, 1)
	return headers[0]
}

func newRun(t *testing.T) *storage.Run {
	t.Helper()
	run, err := storage.NewRun(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(run.Cleanup)
	return run
}

func TestMaterializeWritesUpload(t *testing.T) {
	run := newRun(t)
	header := newFileHeader(t, "speech.mp3", "fake audio bytes")

	mf, err := Materialize(run, header, 0, 1<<20)
	require.NoError(t, err)

	assert.Equal(t, "speech.mp3", mf.Filename)
	assert.Equal(t, int64(len("fake audio bytes")), mf.Size)

	data, err := os.ReadFile(mf.Path)
	require.NoError(t, err)
	assert.Equal(t, "fake audio bytes", string(data))
}

func TestMaterializeUniqueDestinations(t *testing.T) {
	run := newRun(t)
	first := newFileHeader(t, "same.mp3", "first")
	second := newFileHeader(t, "same.mp3", "second")

	a, err := Materialize(run, first, 0, 1<<20)
	require.NoError(t, err)
	b, err := Materialize(run, second, 1, 1<<20)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)

	dataA, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	dataB, err := os.ReadFile(b.Path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(dataA))
	assert.Equal(t, "second", string(dataB))
}

func TestMaterializeRejectsOversizedStream(t *testing.T) {
	run := newRun(t)
	header := newFileHeader(t, "big.mp3", strings.Repeat("x", 1024))

	_, err := Materialize(run, header, 0, 512)
	require.Error(t, err)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "big.mp3", storageErr.Filename)

	// Nothing partial is left behind inside the run.
	entries, err := os.ReadDir(run.Path())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMaterializeRejectsEmptyStream(t *testing.T) {
	run := newRun(t)
	header := newFileHeader(t, "empty.mp3", "")

	_, err := Materialize(run, header, 0, 1<<20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
