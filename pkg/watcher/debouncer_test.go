package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "test.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "test.go", events[0].Path)
		assert.Equal(t, OpCreate, events[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_CreateThenDelete_Cancels(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "test.go", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "test.go", Operation: OpDelete, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		t.Fatalf("expected no events, got %v", events)
	case <-time.After(200 * time.Millisecond):
		// correct: create+delete cancels out
	}
}

func TestDebouncer_DeleteThenCreate_BecomesModify(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "test.go", Operation: OpDelete, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "test.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Operation)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_DistinctPaths_EmitSeparately(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "b.go", Operation: OpCreate, Timestamp: time.Now()})

	select {
	case events := <-d.Output():
		require.Len(t, events, 2)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for debounced events")
	}
}
