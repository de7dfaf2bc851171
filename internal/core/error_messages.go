// Package core provides the business logic for CSV standardization.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Action: Save file as UTF-8 or choose the file's character set
//	          Patterns: "encoding error", "unknown charset"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Check for unbalanced quotes in your file
//	          Patterns: "invalid csv"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a CSV file with a header row
//	          Patterns: "empty file"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Required field not mapped
//	         Action: Choose a column for every required field
//	         Patterns: "required field not mapped"
//
//	MAP002 - Unknown column or field in a mapping
//	         Action: Pick a column from the uploaded file's headers
//	         Patterns: "unknown column", "unknown field"
//
//	MAP003 - Field mapped more than once
//	         Action: Map each field to a single column
//	         Patterns: "mapped more than once"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Validation failed: Some rows have invalid values
//	         Action: Fix the listed rows and upload again
//	         Patterns: "validation failed"
//
//	VAL002 - Not standardized: Data has not been standardized yet
//	         Action: Standardize the upload before downloading or sending it
//	         Patterns: "not standardized"
//
// # Template Errors (TPL001-TPL099)
//
//	TPL001 - Template not found
//	         Action: Check the template link
//	         Patterns: "template not found"
//
//	TPL002 - Invalid template definition
//	         Action: Fix the template fields and try again
//	         Patterns: "invalid template"
//
//	TPL003 - Slug in use by another template
//	         Action: Choose a different slug
//	         Patterns: "slug already in use"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many uploads"
//
//	UPL003 - Session expired: Upload session not found
//	         Action: The upload may have expired. Please start a new upload
//	         Patterns: "session not found"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Sheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - No destination: Template has no connected sheet
//	           Action: Connect a Google Sheet to the template first
//	           Patterns: "no sheet destination"
//
//	SHEET002 - Sheets API failure
//	           Action: Check the sheet still exists and access is granted
//	           Patterns: "sheets api"
//
// # Database Errors (DB001-DB099)
//
//	DB004 - Connection refused, DB005 - Connection reset,
//	DB006 - Timeout, DB007 - Deadlock
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Malformed request body or parameters
//	         Patterns: "invalid request"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones ("encoding error" is checked before "invalid csv"
// because encoding failures are reported as parse errors).
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8 or choose its character set",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unknown charset",
		msg: UserMessage{
			Message: "Unsupported character set",
			Action:  "Save the file as UTF-8 and upload again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check for unbalanced quotes in your file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Mapping Errors (MAP001-MAP003)
	// =========================================================================
	{
		pattern: "required field not mapped",
		msg: UserMessage{
			Message: "Some required fields are not mapped",
			Action:  "Choose a column for every required field",
			Code:    "MAP001",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "Mapped column is not in the uploaded file",
			Action:  "Pick a column from the file's headers",
			Code:    "MAP002",
		},
	},
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "Mapped field is not part of this template",
			Action:  "Reload the template and map again",
			Code:    "MAP002",
		},
	},
	{
		pattern: "mapped more than once",
		msg: UserMessage{
			Message: "A field is mapped more than once",
			Action:  "Map each field to a single column",
			Code:    "MAP003",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL002)
	// =========================================================================
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some rows have invalid values",
			Action:  "Fix the listed rows and upload again",
			Code:    "VAL001",
		},
	},
	{
		pattern: "not standardized",
		msg: UserMessage{
			Message: "Data has not been standardized yet",
			Action:  "Standardize the upload before downloading or sending it",
			Code:    "VAL002",
		},
	},

	// =========================================================================
	// Template Errors (TPL001-TPL003)
	// =========================================================================
	{
		pattern: "template not found",
		msg: UserMessage{
			Message: "Template not found",
			Action:  "Check the template link",
			Code:    "TPL001",
		},
	},
	{
		pattern: "invalid template",
		msg: UserMessage{
			Message: "Template definition is invalid",
			Action:  "Fix the template fields and try again",
			Code:    "TPL002",
		},
	},
	{
		pattern: "slug already in use",
		msg: UserMessage{
			Message: "Another template already uses this link",
			Action:  "Choose a different slug",
			Code:    "TPL003",
		},
	},

	// =========================================================================
	// Upload Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Upload session not found",
			Action:  "The upload may have expired. Please start a new upload",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Sheet Errors (SHEET001-SHEET002)
	// =========================================================================
	{
		pattern: "no sheet destination",
		msg: UserMessage{
			Message: "No Google Sheet is connected to this template",
			Action:  "Connect a sheet to the template first",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "sheets api",
		msg: UserMessage{
			Message: "Google Sheets rejected the request",
			Action:  "Check the sheet still exists and access is granted",
			Code:    "SHEET002",
		},
	},

	// =========================================================================
	// Database Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Request Errors (REQ001)
	// =========================================================================
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request body and try again",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("start session: %w", ErrTemplateNotFound))
//	// msg.Code == "TPL001"
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "Template not found (Code: TPL001). Check the template link"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
