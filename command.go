package stoat

// CommandKind distinguishes commands that create an aggregate from commands
// that update an existing one. The worker dispatches on it: creation commands
// are only valid from Uninitialized, update commands only from Available.
type CommandKind int

const (
	// CommandCreate marks a command that brings an aggregate into existence.
	CommandCreate CommandKind = iota

	// CommandUpdate marks a command against an existing aggregate.
	CommandUpdate
)

// String returns the string representation of the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandCreate:
		return "create"
	case CommandUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Command represents an intent to change an aggregate. Commands may be
// rejected; only the events they produce are ever persisted.
type Command interface {
	// CommandType returns the type identifier for this command (e.g., "OpenAccount").
	CommandType() string

	// Kind reports whether this is a creation or an update command.
	Kind() CommandKind
}

// CommandResult represents the result of command execution.
// It contains either the resulting events or an error.
type CommandResult struct {
	// Success indicates whether the command executed successfully.
	Success bool

	// AggregateID is the ID of the aggregate the command was executed against.
	AggregateID string

	// Version is the stream version after the resulting events were persisted.
	Version int64

	// Events contains the domain events the command produced, in the order
	// they were persisted and applied.
	Events []interface{}

	// Error contains the failure cause if the command failed.
	Error error
}

// NewSuccessResult creates a successful CommandResult.
func NewSuccessResult(aggregateID string, version int64, events []interface{}) CommandResult {
	return CommandResult{
		Success:     true,
		AggregateID: aggregateID,
		Version:     version,
		Events:      events,
	}
}

// NewErrorResult creates a failed CommandResult.
func NewErrorResult(err error) CommandResult {
	return CommandResult{
		Success: false,
		Error:   err,
	}
}

// IsSuccess returns true if the command executed successfully.
func (r CommandResult) IsSuccess() bool {
	return r.Success && r.Error == nil
}

// IsError returns true if the command failed.
func (r CommandResult) IsError() bool {
	return !r.Success || r.Error != nil
}
