// Package batch carries per-item outcomes of batched divisions.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of dividing one parent in a batch.
type Result struct {
	parentID int64
	id       int64
	members  int64
	status   ItemStatus
	err      error
}

// NewOK creates a successful result for the child collection id of parentID.
func NewOK(parentID, id, members int64) Result {
	return Result{parentID: parentID, id: id, members: members, status: StatusOK}
}

// NewError creates a failed result.
func NewError(parentID int64, err error) Result {
	return Result{parentID: parentID, status: StatusError, err: err}
}

// ParentID returns the divided collection.
func (r Result) ParentID() int64 { return r.parentID }

// ID returns the created collection, zero on failure.
func (r Result) ID() int64 { return r.id }

// Members returns the size of the created collection.
func (r Result) Members() int64 { return r.members }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
