// Package watcher detects filesystem changes under a codebase root and
// emits debounced batches of events for an incremental reindex trigger.
// Grounded on the teacher's internal/watcher package: the same
// Operation/FileEvent/Options shapes, the same fsnotify-primary,
// polling-fallback split, and the same coalescing debouncer, generalized
// from amanmcp's own exclude/config file names to this module's
// pkg/scanner/gitignore matcher and .codesearch.yaml config file.
package watcher

import (
	"context"
	"time"
)

// Operation identifies the kind of filesystem change an event reports.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
	// OpConfigChange fires when .codesearch.yaml/.yml changes, so a
	// long-running watch loop can reload exclude patterns.
	OpConfigChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent reports one filesystem change, relative to the watched root.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher watches a directory tree and delivers debounced batches of
// FileEvents. Start blocks until ctx is cancelled or Stop is called.
type Watcher interface {
	Start(ctx context.Context, root string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to coalesce events for the same path
	// before emitting a batch. Default: 300ms.
	DebounceWindow time.Duration

	// PollInterval is the scan period used when fsnotify is unavailable.
	// Default: 5s.
	PollInterval time.Duration

	// EventBufferSize bounds the Events() channel. Default: 256.
	EventBufferSize int

	// IgnorePatterns are additional gitignore-style patterns, applied on
	// top of scanner.DefaultIgnorePatterns.
	IgnorePatterns []string
}

// DefaultOptions returns Options with every field set to its default.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  300 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 256,
	}
}

// WithDefaults fills zero-valued fields with DefaultOptions' values.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}
