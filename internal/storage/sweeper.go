package storage

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultRetentionAge  = 5 * time.Minute
)

// StartSweeper launches the background sweep removing run directories older
// than maxAge. Per-request cleanup is the primary mechanism; the sweeper is a
// backstop against crashes and cleanup bugs.
func StartSweeper(ctx context.Context, base string, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultRetentionAge
	}
	go sweepLoop(ctx, base, interval, maxAge)
}

func sweepLoop(ctx context.Context, base string, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := SweepOnce(base, maxAge); err != nil {
				log.Printf("sweep temp runs error: %v", err)
			}
		}
	}
}

// SweepOnce removes every run directory under base whose modification time is
// older than maxAge.
func SweepOnce(base string, maxAge time.Duration) error {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(base, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// Another cleanup may have raced us between ReadDir and Info.
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(path); err != nil {
				log.Printf("remove stale run %s failed: %v", path, err)
				continue
			}
			log.Printf("swept stale run directory: %s", path)
		}
	}
	return nil
}
