package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"transcriber/internal/models"
	"transcriber/internal/storage"
)

// ErrEmptyBatch means no outcome in the batch succeeded, so there is nothing
// to archive. Surfaced to the caller as a request-level error instead of an
// empty zip.
var ErrEmptyBatch = errors.New("no file was transcribed successfully")

// ArchiveName is the entry name offered for download.
const ArchiveName = "transcriptions.zip"

// ManifestName is the entry listing every failure and rejection.
const ManifestName = "manifest.txt"

// BuildZip writes the batch into a zip under the run directory: one text
// entry per succeeded outcome, named after the original file with its
// extension replaced, plus a manifest when anything failed or was rejected.
// The archive lives inside the run so the cleanup that removes the run
// removes the archive too.
func BuildZip(run *storage.Run, batch *models.Batch) (string, error) {
	if batch.SuccessCount() == 0 {
		return "", ErrEmptyBatch
	}

	zipPath := run.Join(ArchiveName)
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	werr := writeEntries(zw, batch)
	if cerr := zw.Close(); werr == nil {
		werr = cerr
	}
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(zipPath)
		return "", fmt.Errorf("write archive: %w", werr)
	}
	return zipPath, nil
}

func writeEntries(zw *zip.Writer, batch *models.Batch) error {
	for _, outcome := range batch.Outcomes {
		if !outcome.Succeeded() {
			continue
		}
		w, err := zw.Create(TextEntryName(outcome.Filename))
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(strings.TrimSpace(outcome.Text))); err != nil {
			return err
		}
	}

	manifest := buildManifest(batch)
	if manifest == "" {
		return nil
	}
	w, err := zw.Create(ManifestName)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(manifest))
	return err
}

// TextEntryName replaces the original extension with .txt.
func TextEntryName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = filename
	}
	return base + ".txt"
}

// buildManifest summarizes every rejection and per-file failure, in the
// original order, so partial results are never silently short.
func buildManifest(batch *models.Batch) string {
	var sb strings.Builder
	for _, rej := range batch.Rejections {
		fmt.Fprintf(&sb, "rejected: %s\n", rej.Reason)
	}
	for _, outcome := range batch.Outcomes {
		if outcome.Succeeded() {
			continue
		}
		fmt.Fprintf(&sb, "failed: %s: %v\n", outcome.Filename, outcome.Err)
	}
	return sb.String()
}
