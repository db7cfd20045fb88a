/*
scheduler.go - Periodic architecture table reload

PURPOSE:
  Keeps the SQLite architecture table in step with the classification file
  the server was started with. Operators update the file; the reloader
  re-reads it on an interval and upserts every entry. Entries added through
  the API are kept (the file never deletes).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips the upsert when the file content has not changed
  - A failed load is logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)

USAGE:
  reloader := NewArchitectureReloader(store, "technology.json", log)
  reloader.Start()
  // ... later
  reloader.Stop()

SEE ALSO:
  - architecture/architecture.go: File loaders
  - store/sqlite/sqlite.go: SeedTable
*/
package api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/license-engine/architecture"
	"github.com/warp/license-engine/store/sqlite"
)

// ArchitectureReloader re-seeds the architecture table from a file.
type ArchitectureReloader struct {
	Store         *sqlite.Store
	Path          string
	CheckInterval time.Duration
	Log           logrus.FieldLogger

	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	reloadMu sync.Mutex
	lastHash [sha256.Size]byte
}

// NewArchitectureReloader creates a reloader for path.
func NewArchitectureReloader(store *sqlite.Store, path string, log logrus.FieldLogger) *ArchitectureReloader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ArchitectureReloader{
		Store:         store,
		Path:          path,
		CheckInterval: 5 * time.Minute,
		Log:           log.WithField("component", "architecture_reloader"),
	}
}

// Start begins the periodic reload. The first reload runs immediately.
func (ar *ArchitectureReloader) Start() {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.ticker != nil {
		return
	}
	ar.ticker = time.NewTicker(ar.CheckInterval)
	ar.stop = make(chan struct{})
	ar.wg.Add(1)

	go ar.run(ar.ticker, ar.stop)

	ar.Log.WithFields(logrus.Fields{"file": ar.Path, "interval": ar.CheckInterval.String()}).Info("reloader started")
}

// Stop stops the reloader and waits for a running reload to finish.
func (ar *ArchitectureReloader) Stop() {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if ar.ticker != nil {
		ar.ticker.Stop()
		close(ar.stop)
		ar.wg.Wait()
		ar.ticker = nil
		ar.Log.Info("reloader stopped")
	}
}

func (ar *ArchitectureReloader) run(ticker *time.Ticker, stop chan struct{}) {
	defer ar.wg.Done()

	ar.reloadAndLog()

	for {
		select {
		case <-ticker.C:
			ar.reloadAndLog()
		case <-stop:
			return
		}
	}
}

func (ar *ArchitectureReloader) reloadAndLog() {
	changed, err := ar.Reload(context.Background())
	if err != nil {
		ar.Log.WithError(err).Error("architecture reload failed")
		return
	}
	if changed {
		ar.Log.Info("architecture table reloaded")
	}
}

// Reload reads the file and upserts its entries when the content changed
// since the last successful reload. It reports whether anything was stored.
func (ar *ArchitectureReloader) Reload(ctx context.Context) (bool, error) {
	ar.reloadMu.Lock()
	defer ar.reloadMu.Unlock()

	data, err := os.ReadFile(ar.Path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", ar.Path, err)
	}
	hash := sha256.Sum256(data)
	if hash == ar.lastHash {
		return false, nil
	}

	table, err := architecture.LoadFile(ar.Path)
	if err != nil {
		return false, err
	}
	if err := ar.Store.SeedTable(ctx, table); err != nil {
		return false, fmt.Errorf("seed architectures: %w", err)
	}
	ar.lastHash = hash
	return true, nil
}
