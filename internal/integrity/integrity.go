// Package integrity implements a periodic drift check between the
// filesystem and the fingerprint map, reconciled through
// IndexManager.ApplyDelta — a standalone reconciliation pass the index
// manager doesn't drive itself.
package integrity

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/blakazulu/search-mcp-sub002/internal/fingerprint"
	"github.com/blakazulu/search-mcp-sub002/internal/indexmanager"
	"github.com/blakazulu/search-mcp-sub002/internal/policy"
)

// DefaultInterval is how often the scheduler reconciles when none is
// configured.
const DefaultInterval = 24 * time.Hour

// Drift is the symmetric-difference result of comparing a fresh scan
// against the fingerprint map.
type Drift struct {
	Added       []string
	Modified    []string
	Removed     []string
	InSync      int
	LastChecked time.Time
}

// ReconcileResult reports the outcome of one reconcile call.
type ReconcileResult struct {
	Success bool
	Errors  []string
	Applied indexmanager.IndexResult
}

// Engine performs drift checks and reconciliation for one project.
type Engine struct {
	rootDir      string
	pol          *policy.Policy
	fingerprints *fingerprint.Store
	manager      *indexmanager.Manager

	mu           sync.Mutex
	lastChecked  time.Time
	lastCheckSet bool
}

// New builds an Engine for one project's policy, fingerprint store, and
// IndexManager.
func New(rootDir string, pol *policy.Policy, fingerprints *fingerprint.Store, manager *indexmanager.Manager) *Engine {
	return &Engine{rootDir: rootDir, pol: pol, fingerprints: fingerprints, manager: manager}
}

// ScanCurrentState walks the project under policy and returns each
// allowed file's current content hash.
func (e *Engine) ScanCurrentState() (map[string]string, error) {
	relPaths, err := e.pol.Walk(e.rootDir)
	if err != nil {
		return nil, fmt.Errorf("integrity: scan: %w", err)
	}

	current := make(map[string]string, len(relPaths))
	for _, rel := range relPaths {
		data, readErr := os.ReadFile(filepath.Join(e.rootDir, rel))
		if readErr != nil {
			continue
		}
		current[rel] = chunk.ContentHash(string(data))
	}
	return current, nil
}

// CalculateDrift compares current (from ScanCurrentState) against the
// fingerprint map: new paths are added, hash mismatches are modified,
// tracked paths absent from current are removed.
func (e *Engine) CalculateDrift(current map[string]string) Drift {
	d := Drift{LastChecked: time.Now()}

	for path, hash := range current {
		prev, ok := e.fingerprints.Get(path)
		switch {
		case !ok:
			d.Added = append(d.Added, path)
		case prev.ContentHash != hash:
			d.Modified = append(d.Modified, path)
		default:
			d.InSync++
		}
	}

	for _, tracked := range e.fingerprints.Paths() {
		if _, ok := current[tracked]; !ok {
			d.Removed = append(d.Removed, tracked)
		}
	}

	e.mu.Lock()
	e.lastChecked = d.LastChecked
	e.lastCheckSet = true
	e.mu.Unlock()

	return d
}

// Reconcile scans, computes drift, and applies it through
// IndexManager.ApplyDelta, refusing if a full index is already active.
func (e *Engine) Reconcile(ctx context.Context) ReconcileResult {
	if e.manager.IsIndexingActive() {
		return ReconcileResult{Success: false, Errors: []string{"Indexing is already in progress"}}
	}

	current, err := e.ScanCurrentState()
	if err != nil {
		return ReconcileResult{Success: false, Errors: []string{err.Error()}}
	}
	drift := e.CalculateDrift(current)

	if len(drift.Added) == 0 && len(drift.Modified) == 0 && len(drift.Removed) == 0 {
		return ReconcileResult{Success: true}
	}

	applied, err := e.manager.ApplyDelta(ctx, indexmanager.Delta{
		Added:    drift.Added,
		Modified: drift.Modified,
		Removed:  drift.Removed,
	}, nil)
	if err != nil {
		return ReconcileResult{Success: false, Errors: []string{err.Error()}}
	}

	result := ReconcileResult{Success: true, Applied: applied}
	if len(applied.Errors) > 0 {
		result.Errors = applied.Errors
	}
	return result
}

// GetLastCheckTime reports when CalculateDrift last ran, or the zero
// time and false if it has never run.
func (e *Engine) GetLastCheckTime() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastChecked, e.lastCheckSet
}

// Scheduler runs Reconcile on a fixed interval.
type Scheduler struct {
	engine   *Engine
	interval time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewScheduler builds a Scheduler with the given reconcile interval;
// interval <= 0 uses DefaultInterval.
func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{engine: engine, interval: interval}
}

// Start begins the periodic reconcile loop. Calling Start while already
// running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)

	go func() {
		defer close(s.doneCh)
		defer s.ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-s.ticker.C:
				s.engine.Reconcile(runCtx)
			}
		}
	}()
}

// Stop halts the periodic loop, waiting for any in-flight reconcile to
// return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.doneCh
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunNow triggers an immediate reconcile outside the regular schedule.
func (s *Scheduler) RunNow(ctx context.Context) ReconcileResult {
	return s.engine.Reconcile(ctx)
}

// GetLastCheckTime delegates to the underlying Engine.
func (s *Scheduler) GetLastCheckTime() (time.Time, bool) {
	return s.engine.GetLastCheckTime()
}

// RunStartupCheckBackground runs one reconcile pass in a goroutine and
// logs (rather than propagates) any error, so a misbehaving project never
// crashes process startup.
func RunStartupCheckBackground(ctx context.Context, engine *Engine) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("integrity: startup check panicked: %v", r)
			}
		}()
		result := engine.Reconcile(ctx)
		if !result.Success {
			log.Printf("integrity: startup check failed: %v", result.Errors)
		}
	}()
}
