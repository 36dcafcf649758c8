package batch

import (
	"errors"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
)

// ItemStatus is the processing outcome of a single import item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
	// StatusSkipped marks a malformed record that was dropped without aborting the batch.
	StatusSkipped ItemStatus = "skipped"
)

// Result is the outcome of processing one record in a batch import.
type Result struct {
	index  int
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(index int, id string) Result { return Result{index: index, id: id, status: StatusOK} }

// NewError creates a failed batch result. Malformed records are reported as skipped.
func NewError(index int, id string, err error) Result {
	status := StatusError
	if errors.Is(err, domain.ErrMalformedRecord) {
		status = StatusSkipped
	}
	return Result{index: index, id: id, status: status, err: err}
}

// Index returns the item position in the submitted batch.
func (r Result) Index() int { return r.index }

// ID returns the store identifier (may be empty for malformed items).
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts outcomes across a batch.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.status {
		case StatusOK:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
