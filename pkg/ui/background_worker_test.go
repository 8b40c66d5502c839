package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const oneCompany = `[{"id":1,"name":"Acme","relationship_type":"head_office","role":"admin","parent_id":null}]`
const twoCompanies = `[{"id":1,"name":"Acme","relationship_type":"head_office","role":"admin","parent_id":null},
{"id":2,"name":"Acme North","relationship_type":"branch","role":"user","parent_id":1}]`

func writeData(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

// newTestWorker creates a worker on a fresh data file whose messages are
// delivered on the returned channel.
func newTestWorker(t *testing.T, content string) (*BackgroundWorker, string, chan tea.Msg) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.json")
	writeData(t, path, content)

	msgs := make(chan tea.Msg, 16)
	worker, err := NewBackgroundWorker(WorkerConfig{
		DataPath:      path,
		DebounceDelay: 50 * time.Millisecond,
		Send:          func(m tea.Msg) { msgs <- m },
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	t.Cleanup(worker.Stop)
	return worker, path, msgs
}

func waitMsg(t *testing.T, msgs <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for worker message")
		return nil
	}
}

func TestBackgroundWorker_NewWithoutPath(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()

	if worker.State() != WorkerIdle {
		t.Errorf("Expected idle state, got %v", worker.State())
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("Start without path failed: %v", err)
	}
	worker.TriggerRefresh()
	time.Sleep(50 * time.Millisecond)
	if worker.GetSnapshot() != nil {
		t.Error("Expected nil snapshot without a data path")
	}
}

func TestBackgroundWorker_StartStop(t *testing.T) {
	worker, _, _ := newTestWorker(t, oneCompany)

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := worker.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	worker.Stop()
	worker.Stop()

	if worker.State() != WorkerStopped {
		t.Errorf("Expected stopped state, got %v", worker.State())
	}
	// Refresh after stop is ignored.
	worker.TriggerRefresh()
}

func TestBackgroundWorker_TriggerRefresh(t *testing.T) {
	worker, _, msgs := newTestWorker(t, twoCompanies)

	worker.TriggerRefresh()
	loaded, ok := waitMsg(t, msgs).(CompaniesLoadedMsg)
	if !ok {
		t.Fatal("Expected CompaniesLoadedMsg")
	}
	if len(loaded.Snapshot.Companies) != 2 {
		t.Errorf("Expected 2 companies, got %d", len(loaded.Snapshot.Companies))
	}
	if worker.GetSnapshot() != loaded.Snapshot {
		t.Error("GetSnapshot should return the reported snapshot")
	}
	if worker.LastHash() != loaded.Snapshot.Hash || loaded.Snapshot.Hash == "" {
		t.Errorf("unexpected hash %q / %q", worker.LastHash(), loaded.Snapshot.Hash)
	}
}

func TestBackgroundWorker_ManualRefreshAlwaysReports(t *testing.T) {
	worker, _, msgs := newTestWorker(t, oneCompany)

	worker.TriggerRefresh()
	first := waitMsg(t, msgs).(CompaniesLoadedMsg)
	worker.TriggerRefresh()
	second := waitMsg(t, msgs).(CompaniesLoadedMsg)

	if first.Snapshot.Hash != second.Snapshot.Hash {
		t.Error("same content should hash the same")
	}
}

func TestBackgroundWorker_WatchReload(t *testing.T) {
	worker, path, msgs := newTestWorker(t, oneCompany)
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	writeData(t, path, twoCompanies)
	loaded, ok := waitMsg(t, msgs).(CompaniesLoadedMsg)
	if !ok {
		t.Fatal("Expected CompaniesLoadedMsg after file change")
	}
	if len(loaded.Snapshot.Companies) != 2 {
		t.Errorf("Expected 2 companies, got %d", len(loaded.Snapshot.Companies))
	}
}

func TestBackgroundWorker_ContentHashDedup(t *testing.T) {
	worker, path, msgs := newTestWorker(t, oneCompany)

	worker.TriggerRefresh()
	first := waitMsg(t, msgs).(CompaniesLoadedMsg)
	worker.SetBaseline(first.Snapshot.Hash)

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Rewrite identical content: the watcher fires but nothing is sent.
	writeData(t, path, oneCompany)

	select {
	case m := <-msgs:
		t.Fatalf("unexpected message for unchanged content: %#v", m)
	case <-time.After(400 * time.Millisecond):
	}
	if worker.GetSnapshot() != first.Snapshot {
		t.Error("Snapshot pointer changed when content was unchanged - dedup failed")
	}
}

func TestBackgroundWorker_LoadErrorAndRecovery(t *testing.T) {
	worker, path, msgs := newTestWorker(t, `[{"id":1,`)

	worker.TriggerRefresh()
	failed, ok := waitMsg(t, msgs).(LoadErrorMsg)
	if !ok {
		t.Fatal("Expected LoadErrorMsg")
	}
	if failed.Err.Phase != "load" || !failed.Recoverable {
		t.Errorf("unexpected error message %+v", failed)
	}
	if worker.LastError() == nil || worker.LastError().Retries != 1 {
		t.Errorf("Expected one recorded failure, got %+v", worker.LastError())
	}

	writeData(t, path, oneCompany)
	worker.TriggerRefresh()
	if _, ok := waitMsg(t, msgs).(CompaniesLoadedMsg); !ok {
		t.Fatal("Expected recovery after fixing the file")
	}
	if worker.LastError() != nil {
		t.Errorf("Expected error cleared, got %v", worker.LastError())
	}
}

func TestBackgroundWorker_MissingFile(t *testing.T) {
	worker, path, msgs := newTestWorker(t, oneCompany)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	worker.TriggerRefresh()
	failed, ok := waitMsg(t, msgs).(LoadErrorMsg)
	if !ok {
		t.Fatal("Expected LoadErrorMsg")
	}
	if !errors.Is(failed.Err, os.ErrNotExist) {
		t.Errorf("Expected not-exist cause, got %v", failed.Err)
	}
}

func TestBackgroundWorker_SafeCompute(t *testing.T) {
	worker, err := NewBackgroundWorker(WorkerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	if werr := worker.safeCompute("ok", func() error { return nil }); werr != nil {
		t.Errorf("Expected nil, got %v", werr)
	}

	werr := worker.safeCompute("boom", func() error { panic("kaboom") })
	if werr == nil || werr.Phase != "boom" || !strings.Contains(werr.Cause.Error(), "kaboom") {
		t.Errorf("Expected recovered panic, got %v", werr)
	}

	cause := errors.New("plain")
	werr = worker.safeCompute("err", func() error { return cause })
	if werr == nil || !errors.Is(werr, cause) {
		t.Errorf("Expected wrapped cause, got %v", werr)
	}
}

func TestWorkerError_String(t *testing.T) {
	err := WorkerError{Phase: "load", Cause: errors.New("disk"), Retries: 3}
	if got := err.Error(); got != "load failed: disk (retries: 3)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWorkerState_String(t *testing.T) {
	tests := []struct {
		state    WorkerState
		expected string
	}{
		{WorkerIdle, "idle"},
		{WorkerProcessing, "processing"},
		{WorkerStopped, "stopped"},
		{WorkerState(9), "WorkerState(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("%d.String() = %q, want %q", int(tt.state), got, tt.expected)
		}
	}
}

func TestHashPrefix(t *testing.T) {
	if got := hashPrefix("0123456789abcdef0123"); got != "0123456789abcdef" {
		t.Errorf("hashPrefix long = %q", got)
	}
	if got := hashPrefix("abc"); got != "abc" {
		t.Errorf("hashPrefix short = %q", got)
	}
}

func TestBackgroundWorker_ConcurrentTrigger(t *testing.T) {
	worker, _, msgs := newTestWorker(t, oneCompany)

	for i := 0; i < 10; i++ {
		go worker.TriggerRefresh()
	}
	waitMsg(t, msgs)

	// Drain follow-ups; bursts coalesce into far fewer runs than triggers.
	deadline := time.After(500 * time.Millisecond)
	n := 1
	for {
		select {
		case <-msgs:
			n++
		case <-deadline:
			if n > 10 {
				t.Errorf("Expected coalesced reloads, got %d", n)
			}
			if worker.State() != WorkerIdle {
				t.Errorf("Expected idle after burst, got %v", worker.State())
			}
			return
		}
	}
}
