package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Run is one request's private directory under the temp base. Every
// materialized upload and the assembled archive live inside it, so a single
// RemoveAll covers all per-request artifacts.
type Run struct {
	path string
}

// NewRun creates a uniquely named run directory under base.
func NewRun(base string) (*Run, error) {
	path := filepath.Join(base, uuid.NewString())
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Run{path: path}, nil
}

// Path returns the absolute run directory path.
func (r *Run) Path() string {
	return r.path
}

// Join returns an absolute path for name inside the run directory. The name
// is reduced to its base so uploads cannot traverse out of the run.
func (r *Run) Join(name string) string {
	return filepath.Join(r.path, filepath.Base(name))
}

// Cleanup removes the run directory and everything in it. It is idempotent
// and safe to defer next to the code that created the run.
func (r *Run) Cleanup() {
	if r == nil || r.path == "" {
		return
	}
	_ = os.RemoveAll(r.path)
}
