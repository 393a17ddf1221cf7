package archive

import (
	"archive/zip"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriber/internal/models"
	"transcriber/internal/storage"
)

func newRun(t *testing.T) *storage.Run {
	t.Helper()
	run, err := storage.NewRun(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(run.Cleanup)
	return run
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	reader, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()

	entries := make(map[string]string, len(reader.File))
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = string(data)
	}
	return entries
}

func TestBuildZipSuccessOnly(t *testing.T) {
	run := newRun(t)
	batch := &models.Batch{
		Outcomes: []models.Outcome{
			{Filename: "a.mp3", Text: "first transcript\n"},
			{Filename: "b.mp3", Text: "second transcript"},
		},
	}

	path, err := BuildZip(run, batch)
	require.NoError(t, err)

	entries := readZip(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "first transcript", entries["a.txt"])
	assert.Equal(t, "second transcript", entries["b.txt"])
}

func TestBuildZipIncludesManifest(t *testing.T) {
	run := newRun(t)
	batch := &models.Batch{
		Outcomes: []models.Outcome{
			{Filename: "good.mp3", Text: "transcribed"},
			{Filename: "bad.mp3", Err: errors.New("provider transient: upstream hiccup")},
		},
		Rejections: []models.Rejection{
			{Filename: "huge.mp3", Reason: "file huge.mp3 exceeds maximum size of 100 MB"},
		},
	}

	path, err := BuildZip(run, batch)
	require.NoError(t, err)

	entries := readZip(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "transcribed", entries["good.txt"])

	manifest := entries[ManifestName]
	assert.Contains(t, manifest, "rejected: file huge.mp3 exceeds maximum size")
	assert.Contains(t, manifest, "failed: bad.mp3: provider transient")
	assert.NotContains(t, entries, "bad.txt")
}

func TestBuildZipEmptyBatch(t *testing.T) {
	run := newRun(t)
	batch := &models.Batch{
		Outcomes: []models.Outcome{
			{Filename: "a.mp3", Err: errors.New("boom")},
		},
		Rejections: []models.Rejection{
			{Filename: "b.mp3", Reason: "bad extension"},
		},
	}

	_, err := BuildZip(run, batch)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestTextEntryName(t *testing.T) {
	assert.Equal(t, "a.txt", TextEntryName("a.mp3"))
	assert.Equal(t, "talk.recording.txt", TextEntryName("talk.recording.mpeg"))
	assert.Equal(t, "noext.txt", TextEntryName("noext"))
}
