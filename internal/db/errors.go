package db

import "errors"

// Sentinel errors for storage operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrNoRows      = errors.New("db: no rows")
)

// Op constants name the failing storage operation for error context.
// Cache ops use Valkey/Redis command names, SQL ops the statement kind and table.
const (
	OpDel     = "DEL"
	OpPing    = "PING"
	OpHGetAll = "HGETALL"
	OpHSet    = "HSET"
	OpScan    = "SCAN"
	OpGet     = "GET"
	OpSet     = "SET"

	OpBegin         = "BEGIN"
	OpCommit        = "COMMIT"
	OpMigrate       = "MIGRATE"
	OpConn          = "CONN"
	OpInsertCol     = "INSERT collections"
	OpInsertMembers = "INSERT collection_members"
	OpInsertOrder   = "INSERT collection_order"
	OpAssign        = "INSERT group_assignment"
	OpSelectCol     = "SELECT collections"
	OpSelectMembers = "SELECT collection_members"
	OpInsertPart    = "INSERT particles"
	OpInsertPeaks   = "INSERT peaks"
	OpSelectPeaks   = "SELECT peaks"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err and a *Error otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
