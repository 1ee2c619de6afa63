package service

// error_messages.go maps errors from any layer to messages an operator can
// act on, each with a code to quote when asking for help.
//
// # Export errors (EXP001-EXP099)
//
//	EXP001 - Duplicate header: a layout declares the same column twice
//	EXP002 - Unknown field: a record names a column the layout lacks
//	EXP003 - Wrong value shape: a list given for a single-value column or
//	         a single value given for a numbered (repeated) column
//	EXP004 - Layout locked: headers changed after rows were added
//	EXP005 - Row reused: a row was changed or added after submission
//	EXP006 - Empty header: a layout declares a blank column name
//
// # Input errors (IN001-IN099)
//
//	IN001 - Invalid records: the input document could not be read
//	IN002 - Unknown layout
//	IN003 - Invalid path: the output path leaves the export directory
//
// # Output errors (OUT001-OUT099)
//
//	OUT001 - Write failed: the export file could not be written
//
// # Capacity and request errors
//
//	BUSY001 - Too many exports running
//	REQ001  - Request cancelled
//	REQ002  - Request timed out
//
// Unmatched errors map to ERR000; check the logs for the technical error.

import (
	"context"
	"errors"
	"fmt"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/export"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/records"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorMatcher pairs a test on an error chain with its message.
type errorMatcher struct {
	match func(error) bool
	msg   UserMessage
}

func isType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// errorMatchers are tried in order; the first match wins.
var errorMatchers = []errorMatcher{
	{
		match: isType[*export.DuplicateHeaderError],
		msg: UserMessage{
			Message: "The layout declares the same column twice",
			Action:  "Remove the duplicate; note that course and course_ count as the same column",
			Code:    "EXP001",
		},
	},
	{
		match: isType[*export.UnknownFieldError],
		msg: UserMessage{
			Message: "A record uses a column the layout does not have",
			Action:  "Check the field names against the layout's headers",
			Code:    "EXP002",
		},
	},
	{
		match: isType[*export.KindMismatchError],
		msg: UserMessage{
			Message: "A value has the wrong shape for its column",
			Action:  "Use a list for numbered columns (ending in _) and a single value for the others",
			Code:    "EXP003",
		},
	},
	{
		match: isType[*export.SchemaFrozenError],
		msg: UserMessage{
			Message: "The layout cannot change once rows have been added",
			Action:  "Declare every header before building rows",
			Code:    "EXP004",
		},
	},
	{
		match: func(err error) bool {
			return errors.Is(err, export.ErrRowSubmitted) || errors.Is(err, export.ErrForeignRow)
		},
		msg: UserMessage{
			Message: "A row was reused after it was added to an export",
			Action:  "Create a new row for each record",
			Code:    "EXP005",
		},
	},
	{
		match: isErr(export.ErrEmptyHeader),
		msg: UserMessage{
			Message: "The layout declares a blank column name",
			Action:  "Give every header a name",
			Code:    "EXP006",
		},
	},
	{
		match: isErr(records.ErrInvalidRecords),
		msg: UserMessage{
			Message: "The input records could not be read",
			Action:  "Send a YAML or JSON list of mappings with text or list values",
			Code:    "IN001",
		},
	},
	{
		match: isErr(layout.ErrUnknownLayout),
		msg: UserMessage{
			Message: "No layout with that name exists",
			Action:  "List the available layouts and pick one",
			Code:    "IN002",
		},
	},
	{
		match: isErr(ErrInvalidPath),
		msg: UserMessage{
			Message: "The output path is outside the export directory",
			Action:  "Use a file name or a path relative to the export directory",
			Code:    "IN003",
		},
	},
	{
		match: isType[*export.PersistenceError],
		msg: UserMessage{
			Message: "The export file could not be written",
			Action:  "Check the output directory exists and is writable, then retry",
			Code:    "OUT001",
		},
	},
	{
		match: isErr(ErrTooManyExports),
		msg: UserMessage{
			Message: "Too many exports are running",
			Action:  "Please wait a moment and try again",
			Code:    "BUSY001",
		},
	},
	{
		match: isErr(context.Canceled),
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		match: isErr(context.DeadlineExceeded),
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller export or try again later",
			Code:    "REQ002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-friendly message.
// Returns an empty UserMessage if err is nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, m := range errorMatchers {
		if m.match(err) {
			return m.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats an error for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserError reports whether err is a caller mistake rather than an
// environment or internal failure. The web layer answers these with 4xx.
func IsUserError(err error) bool {
	switch MapError(err).Code {
	case "EXP001", "EXP002", "EXP003", "EXP004", "EXP005", "EXP006", "IN001", "IN002", "IN003":
		return true
	default:
		return false
	}
}
