package core

// error_messages.go maps technical errors to messages a dispatcher can act on.
// Each message carries a code that can be quoted to support.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a stop with this order id is already on the board
//	        Patterns: "duplicate key", "violates unique"
//	DB002 - Foreign key: a referenced driver or import no longer exists
//	        Patterns: "violates foreign key"
//	DB003 - Connection refused
//	DB004 - Connection reset
//	DB005 - Timeout
//	DB006 - Deadlock
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Too many concurrent imports (ErrTooManyImports)
//	IMP002 - Request cancelled ("context canceled")
//	IMP003 - Request timed out ("context deadline exceeded")
//
// # Driver and Stop Errors (DRV001-DRV099)
//
//	DRV001 - Driver not found
//	DRV002 - Invalid slot
//	DRV003 - Driver name is required
//	DRV004 - Stop not found
//	DRV005 - Invalid id
//	DRV006 - Invalid date
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported file type
//	FILE003 - Workbook could not be read
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request body is not valid JSON
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// ERR000 is the fallback. Check the logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database constraints
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A stop with this order ID is already on the board",
			Action:  "Preview the report to see which rows are duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A stop with this order ID is already on the board",
			Action:  "Preview the report to see which rows are duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced driver or import does not exist",
			Action:  "Refresh the board and try again",
			Code:    "DB002",
		},
	},

	// Database connectivity
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller report or try again later",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},

	// Imports
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "The system is busy importing other reports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller report or check your connection",
			Code:    "IMP003",
		},
	},

	// Drivers and stops
	{
		pattern: "driver not found",
		msg: UserMessage{
			Message: "Driver not found",
			Action:  "Refresh the driver list and pick another driver",
			Code:    "DRV001",
		},
	},
	{
		pattern: "invalid slot",
		msg: UserMessage{
			Message: "Slot is not a valid time of day",
			Action:  "Use a time such as 14:30 or 2:30 PM",
			Code:    "DRV002",
		},
	},
	{
		pattern: "driver name is required",
		msg: UserMessage{
			Message: "Driver name is required",
			Action:  "Enter a name for the driver",
			Code:    "DRV003",
		},
	},
	{
		pattern: "stop not found",
		msg: UserMessage{
			Message: "Stop not found",
			Action:  "Refresh the board, the stop may have been removed",
			Code:    "DRV004",
		},
	},
	{
		pattern: "invalid id",
		msg: UserMessage{
			Message: "The identifier is not valid",
			Action:  "Refresh the page and try again",
			Code:    "DRV005",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date",
			Action:  "Use the YYYY-MM-DD format",
			Code:    "DRV006",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Report exceeds the maximum upload size",
			Action:  "Split the report into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload a .csv, .tsv, .txt or .xlsx report",
			Code:    "FILE002",
		},
	},
	{
		pattern: "read spreadsheet",
		msg: UserMessage{
			Message: "The workbook could not be read",
			Action:  "Re-save the workbook as .xlsx or export it to CSV",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a dispatch report to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a report with data rows",
			Code:    "FILE005",
		},
	},

	// Requests
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body is valid JSON",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its mapped
// message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
