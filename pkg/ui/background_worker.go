// Package ui provides the terminal dashboard for the company hierarchy.
// This file implements the BackgroundWorker that reloads the data file off
// the UI goroutine.
package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/companyview/pkg/loader"
	"github.com/vanderheijden86/companyview/pkg/logging"
	"github.com/vanderheijden86/companyview/pkg/model"
	"github.com/vanderheijden86/companyview/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is reloading the file.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Snapshot is the result of one successful reload.
type Snapshot struct {
	Companies []model.Company
	Hash      string
	Warnings  []string
	Skipped   int
	LoadedAt  time.Time
}

// CompaniesLoadedMsg is sent to the UI when the data file changed.
type CompaniesLoadedMsg struct {
	Snapshot *Snapshot
}

// LoadErrorMsg is sent to the UI when a reload fails. The previous
// companies stay on screen.
type LoadErrorMsg struct {
	Err         *WorkerError
	Recoverable bool // True if we expect to recover on next file change
}

// BackgroundWorker owns the file watcher, coalesces change bursts and
// reloads the company file off the UI thread.
type BackgroundWorker struct {
	dataPath      string
	debounceDelay time.Duration
	log           logrus.FieldLogger

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a change came in while processing
	snapshot   *Snapshot
	started    bool
	lastHash   string
	lastError  *WorkerError
	errorCount int
	send       func(tea.Msg)

	watcher *watcher.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	DataPath      string
	DebounceDelay time.Duration
	Logger        logrus.FieldLogger
	// Send delivers messages to the UI, usually (*tea.Program).Send. It can
	// also be set later with SetSender.
	Send func(tea.Msg)
}

// NewBackgroundWorker creates a new background worker. Without a DataPath
// the worker never watches and refreshes are no-ops.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounce
	}

	w := &BackgroundWorker{
		dataPath:      cfg.DataPath,
		debounceDelay: cfg.DebounceDelay,
		log:           logging.OrDiscard(cfg.Logger).WithField("component", "worker"),
		send:          cfg.Send,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if cfg.DataPath != "" {
		fw, err := watcher.New(cfg.DataPath,
			watcher.WithDebounce(cfg.DebounceDelay),
			watcher.WithLogger(cfg.Logger),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// SetSender sets the function used to deliver messages to the UI.
func (w *BackgroundWorker) SetSender(send func(tea.Msg)) {
	w.mu.Lock()
	w.send = send
	w.mu.Unlock()
}

// SetBaseline records the hash of data already shown, so an unchanged file
// does not trigger a reload message.
func (w *BackgroundWorker) SetBaseline(hash string) {
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()
}

// Start begins watching for file changes. Start is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started || w.state == WorkerStopped {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil {
		close(w.done)
		return nil
	}
	if err := w.watcher.Start(); err != nil {
		close(w.done)
		return err
	}
	go w.processLoop()
	return nil
}

// Stop halts the background worker and cleans up resources.
// Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
			w.log.Warn("timed out waiting for worker shutdown")
		}
	}
}

// TriggerRefresh reloads the file now. A refresh requested while one is
// running is coalesced into a single follow-up run.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		w.mu.Unlock()
		return
	}
	// A manual refresh always reports, even when the content is unchanged.
	w.lastHash = ""
	w.mu.Unlock()

	go w.process()
}

// GetSnapshot returns the latest snapshot (may be nil).
func (w *BackgroundWorker) GetSnapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error (nil if last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last reported snapshot.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

// process loads the file and notifies the UI when the content changed.
func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	snapshot := w.buildSnapshot()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if snapshot != nil {
		w.snapshot = snapshot
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	send := w.send
	w.mu.Unlock()

	if send != nil && snapshot != nil {
		send(CompaniesLoadedMsg{Snapshot: snapshot})
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute executes fn and recovers from any panics.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// buildSnapshot loads the data file. It returns nil when there is no path,
// loading fails or the content is unchanged.
func (w *BackgroundWorker) buildSnapshot() *Snapshot {
	if w.dataPath == "" {
		return nil
	}
	start := time.Now()

	var res loader.Result
	loadErr := w.safeCompute("load", func() error {
		var err error
		res, err = loader.LoadCompaniesFromFile(w.dataPath, loader.Options{Logger: w.log})
		return err
	})
	if loadErr != nil {
		w.recordError(loadErr)
		w.log.WithError(loadErr).Warnf("reloading %s", w.dataPath)
		w.mu.RLock()
		send := w.send
		w.mu.RUnlock()
		if send != nil {
			send(LoadErrorMsg{Err: loadErr, Recoverable: true})
		}
		return nil
	}

	hash := loader.ContentHash(res.Companies)
	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if hash == lastHash && lastHash != "" {
		w.log.WithField("hash", hashPrefix(hash)).Debug("content unchanged, skipping reload")
		w.recordError(nil)
		return nil
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	w.log.WithFields(logrus.Fields{
		"companies": len(res.Companies),
		"skipped":   res.Skipped,
		"elapsed":   time.Since(start),
		"hash":      hashPrefix(hash),
	}).Info("reloaded company file")

	return &Snapshot{
		Companies: res.Companies,
		Hash:      hash,
		Warnings:  res.Warnings,
		Skipped:   res.Skipped,
		LoadedAt:  time.Now(),
	}
}

// hashPrefix returns up to 16 characters of the hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
