package reservation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"training-planner-backend/internal/availability"
	"training-planner-backend/internal/ledger"
)

// Code classifies a Result for the transport layer.
type Code int

const (
	CodeOK Code = iota
	CodeNotFound
	CodeConflict
	CodePrecondition
	CodeUnexpected
)

// Messages shown to the user when the details must stay in the log.
const (
	unexpectedMessage = "An unexpected error occurred. Please try again."
	overlapMessage    = "One or more resources are blocked for the selected dates."
)

// Result is what every command resolves to. Commands never return errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	EventID int64  `json:"eventId,omitempty"`
	Data    any    `json:"data,omitempty"`
	Code    Code   `json:"-"`
}

// PreconditionError rejects a command before anything is written.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

func precondition(format string, args ...any) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError lists the resources blocking a reservation.
type ConflictError struct {
	Conflicts []availability.Conflict
}

func (e *ConflictError) Error() string {
	names := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		names[i] = c.Name
	}
	return fmt.Sprintf("One or more resources (%s) are blocked for the selected dates.", strings.Join(names, ", "))
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// failure converts err into a failed Result. Storage details are logged and
// replaced by a generic message.
func failure(command string, err error) Result {
	var (
		pre      *PreconditionError
		conflict *ConflictError
		missing  *NotFoundError
	)
	switch {
	case errors.As(err, &pre):
		return Result{Message: pre.Msg, Code: CodePrecondition}
	case errors.As(err, &conflict):
		return Result{Message: conflict.Error(), Data: conflict.Conflicts, Code: CodeConflict}
	case errors.As(err, &missing):
		return Result{Message: missing.Error(), Code: CodeNotFound}
	case ledger.IsOverlapViolation(err):
		slog.Warn("storage rejected overlapping reservation", "command", command, "error", err)
		return Result{Message: overlapMessage, Code: CodeConflict}
	default:
		slog.Error("command failed", "command", command, "error", err)
		return Result{Message: unexpectedMessage, Code: CodeUnexpected}
	}
}
