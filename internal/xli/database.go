package xli

import (
	"database/sql"
	"time"
)

// Operation is one recorded CLI invocation.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string // "success" or "error"
}

// Database records operation history so past runs can be audited with the
// history command. Only mutating commands are recorded.
type Database interface {
	// CreateOperation inserts a new operation with the current start time
	// and returns it with its auto-increment ID set.
	CreateOperation(operation, parameters string) (*Operation, error)

	// FinishOperation sets the finish time and final status of an operation.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// Close closes the database connection.
	Close() error
}
