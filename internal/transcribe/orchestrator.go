package transcribe

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"transcriber/internal/models"
)

// Orchestrator fans out one transcription call per materialized file with a
// bounded degree of concurrency. Per-file failures are recorded into that
// file's outcome and never touch sibling work; only a credential rejection
// is fatal for the whole batch, because the credential is shared.
type Orchestrator struct {
	transcriber Transcriber
	maxInFlight int64
}

// NewOrchestrator wraps a Transcriber with the concurrency bound.
func NewOrchestrator(t Transcriber, maxConcurrent int) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Orchestrator{transcriber: t, maxInFlight: int64(maxConcurrent)}
}

// Run transcribes every file and returns outcomes in the original upload
// order regardless of completion order. On an authentication failure the
// in-flight calls drain, no further work is dispatched, and the provider
// error is returned instead of a batch.
func (o *Orchestrator) Run(ctx context.Context, files []*models.MaterializedFile, apiKey, language string) ([]models.Outcome, error) {
	outcomes := make([]models.Outcome, len(files))
	sem := semaphore.NewWeighted(o.maxInFlight)

	var (
		wg       sync.WaitGroup
		authSeen atomic.Bool
		authMu   sync.Mutex
		authErr  error
	)

	for i, file := range files {
		// Checked before each dispatch, not enforced by cancelling
		// in-flight calls: they are allowed to drain.
		if authSeen.Load() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = models.Outcome{Filename: file.Filename, Err: err}
			continue
		}
		// Re-check after the wait: a slot freed by a failed call may have
		// just reported the credential rejection.
		if authSeen.Load() {
			sem.Release(1)
			break
		}

		wg.Add(1)
		go func(i int, file *models.MaterializedFile) {
			defer wg.Done()
			defer sem.Release(1)

			text, err := o.transcriber.Transcribe(ctx, Request{
				Path:     file.Path,
				Filename: file.Filename,
				Language: language,
				APIKey:   apiKey,
			})
			if err != nil {
				log.Printf("transcription failed for %s: %v", file.Filename, err)
				if IsAuthentication(err) {
					authSeen.Store(true)
					authMu.Lock()
					if authErr == nil {
						authErr = err
					}
					authMu.Unlock()
				}
				outcomes[i] = models.Outcome{Filename: file.Filename, Err: err}
				return
			}
			outcomes[i] = models.Outcome{Filename: file.Filename, Text: text}
		}(i, file)
	}

	wg.Wait()

	authMu.Lock()
	defer authMu.Unlock()
	if authErr != nil {
		return nil, authErr
	}
	return outcomes, nil
}
