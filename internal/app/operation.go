package app

// OperationRecord tracks a CLI operation that may mutate state.
// Records are created in memory with ID=0. Only mutating commands persist
// them (giving them an auto-increment ID from the database).
type OperationRecord struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewOperationRecord creates a new in-memory operation record.
func NewOperationRecord(operation, parameters string) *OperationRecord {
	return &OperationRecord{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this record has been saved to the database.
func (op *OperationRecord) Persisted() bool {
	return op.ID != 0
}
