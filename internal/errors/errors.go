// Package errors provides the structured error taxonomy used across
// codesearch's indexing and search pipeline.
package errors

import "fmt"

// Kind is a stable, machine-readable error classification. Callers should
// switch on Kind (via errors.As + Error.Kind) rather than parse messages.
type Kind string

const (
	// KindPathNotFound: root doesn't exist or isn't a directory.
	KindPathNotFound Kind = "PathNotFound"
	// KindAlreadyIndexed: index called on a live collection with force=false.
	KindAlreadyIndexed Kind = "AlreadyIndexed"
	// KindAlreadyIndexing: index/reindex called while status is Indexing.
	KindAlreadyIndexing Kind = "AlreadyIndexing"
	// KindNotIndexed: search/reindex/clear on an unknown root.
	KindNotIndexed Kind = "NotIndexed"
	// KindEmptyCorpus: BM25 learn() with zero documents.
	KindEmptyCorpus Kind = "EmptyCorpus"
	// KindNotTrained: BM25 generate() before learn().
	KindNotTrained Kind = "NotTrained"
	// KindInvalidSplitter: an unrecognised splitter strategy was requested.
	KindInvalidSplitter Kind = "InvalidSplitter"
	// KindInvalidExtensionFilter: a malformed extension filter entry.
	KindInvalidExtensionFilter Kind = "InvalidExtensionFilter"
	// KindEmbeddingError: the embedding provider failed.
	KindEmbeddingError Kind = "EmbeddingError"
	// KindStoreError: the vector store failed.
	KindStoreError Kind = "StoreError"
	// KindCollectionLimitReached: the store signalled it is near capacity.
	KindCollectionLimitReached Kind = "CollectionLimitReached"
	// KindCancelled: the caller cancelled the operation.
	KindCancelled Kind = "Cancelled"
	// KindUnsupportedFilter: the store cannot honour the filter expression.
	KindUnsupportedFilter Kind = "UnsupportedFilter"
	// KindUnsupportedDeletion: the store cannot honour a delete request.
	KindUnsupportedDeletion Kind = "UnsupportedDeletion"
	// KindInternal: an unclassified internal failure.
	KindInternal Kind = "Internal"
)

// Error is the structured error type returned by every public operation in
// this module. It carries a stable Kind plus a human message and, where
// relevant, the offending path or collection name.
type Error struct {
	Kind       Kind
	Message    string
	Path       string
	Collection string
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (path=%s)", e.Kind, e.Message, e.Path)
	}
	if e.Collection != "" {
		return fmt.Sprintf("[%s] %s (collection=%s)", e.Kind, e.Message, e.Collection)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error from an existing error, preserving it as Cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithPath attaches the offending path and returns the error for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithCollection attaches the offending collection name and returns the error for chaining.
func (e *Error) WithCollection(collection string) *Error {
	e.Collection = collection
	return e
}

// WithRetryable marks the error retryable and returns it for chaining.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Kind == kind
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	if ae, ok := err.(*Error); ok {
		return ae.Retryable
	}
	return false
}
