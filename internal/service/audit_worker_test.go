package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/procledger/procledger/internal/models"
)

func TestAuditWorker_ProcessesEntry(t *testing.T) {
	recorder := &mockRecorder{}
	aw := NewAuditWorker(recorder, testLogger(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	go aw.Run(ctx)

	aw.Enqueue(&models.AuditEntry{
		ID:         "a1",
		Action:     models.ActionVersionCreate,
		DocumentID: "doc-1",
	})

	time.Sleep(50 * time.Millisecond)
	cancel()

	entries := recorder.getEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 recorded entry, got %d", len(entries))
	}
	if entries[0].Action != models.ActionVersionCreate {
		t.Errorf("action = %q, want version_create", entries[0].Action)
	}
	if entries[0].DocumentID != "doc-1" {
		t.Errorf("document_id = %q, want doc-1", entries[0].DocumentID)
	}
}

func TestAuditWorker_DropsWhenFull(t *testing.T) {
	recorder := &mockRecorder{}

	// Queue size 2, don't start the worker so it can't drain.
	aw := NewAuditWorker(recorder, testLogger(), 2)

	aw.Enqueue(&models.AuditEntry{Action: models.ActionView})
	aw.Enqueue(&models.AuditEntry{Action: models.ActionView})

	// This one should be dropped without blocking.
	done := make(chan struct{})
	go func() {
		aw.Enqueue(&models.AuditEntry{Action: models.ActionView})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked when queue was full")
	}

	if len(aw.jobs) != 2 {
		t.Errorf("queue len = %d, want 2", len(aw.jobs))
	}
}

func TestAuditWorker_StopDrains(t *testing.T) {
	recorder := &mockRecorder{}
	aw := NewAuditWorker(recorder, testLogger(), 100)

	// Enqueue before starting.
	for i := 0; i < 5; i++ {
		aw.Enqueue(&models.AuditEntry{
			ID:     fmt.Sprintf("a%d", i),
			Action: models.ActionView,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		aw.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run didn't return after cancel")
	}

	entries := recorder.getEntries()
	if len(entries) != 5 {
		t.Errorf("expected 5 drained entries, got %d", len(entries))
	}
}

func TestAuditWorker_PreservesEnqueueOrder(t *testing.T) {
	recorder := &mockRecorder{}
	aw := NewAuditWorker(recorder, testLogger(), 100)

	for i := 0; i < 10; i++ {
		aw.Enqueue(&models.AuditEntry{ID: fmt.Sprintf("a%d", i), Action: models.ActionView})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Run drains immediately.
	aw.Run(ctx)

	entries := recorder.getEntries()
	if len(entries) != 10 {
		t.Fatalf("got %d entries, want 10", len(entries))
	}
	for i, e := range entries {
		if want := fmt.Sprintf("a%d", i); e.ID != want {
			t.Errorf("entries[%d].ID = %q, want %q", i, e.ID, want)
		}
	}
}
