package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"transcriber/internal/models"
	"transcriber/internal/storage"
)

// StorageError is a per-file failure while writing an upload to the run
// directory. It terminates only this file's path through the pipeline.
type StorageError struct {
	Filename string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Filename, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

const copyChunkSize = 64 << 10 // 64 KB

// Materialize streams one admitted upload into the run directory in bounded
// chunks so peak memory stays flat regardless of file size. The destination
// name carries the candidate's batch index, so two uploads with the same
// filename in one request never collide.
func Materialize(run *storage.Run, header *multipart.FileHeader, index int, maxBytes int64) (*models.MaterializedFile, error) {
	name := filepath.Base(header.Filename)
	src, err := header.Open()
	if err != nil {
		return nil, &StorageError{Filename: name, Err: err}
	}
	defer src.Close()

	destPath := run.Join(fmt.Sprintf("%d_%s", index, name))
	dst, err := os.Create(destPath)
	if err != nil {
		return nil, &StorageError{Filename: name, Err: err}
	}

	// The declared size was checked during validation, but the stream is the
	// source of truth. LimitReader with one extra byte detects overruns.
	written, err := io.CopyBuffer(dst, io.LimitReader(src, maxBytes+1), make([]byte, copyChunkSize))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return nil, &StorageError{Filename: name, Err: err}
	}
	if written > maxBytes {
		_ = os.Remove(destPath)
		return nil, &StorageError{Filename: name, Err: fmt.Errorf("stream exceeds maximum size of %d bytes", maxBytes)}
	}
	if written == 0 {
		_ = os.Remove(destPath)
		return nil, &StorageError{Filename: name, Err: fmt.Errorf("uploaded file is empty")}
	}

	return &models.MaterializedFile{
		Filename: name,
		Path:     destPath,
		Size:     written,
	}, nil
}
