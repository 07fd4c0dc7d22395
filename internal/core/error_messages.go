package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Notifications and the upload endpoint show the mapped text;
// the original error only goes to the logs.
//
// Codes:
//
//	FILE001  import file not found      FILE002  empty file
//	FILE003  file too large             FILE004  no file provided
//	FILE005  unsupported file type      VAL004   missing required column
//	DB001    duplicate email/CPF        DB004    database unreachable
//	DB007    deadlock                   USR001   import owner not found
//	JOB001   attempt timed out          JOB002   job queue unavailable
//	UPL001   too many uploads           ERR000   fallback
//
// Sentinel errors are matched first with errors.Is; wrapped driver errors
// that carry no sentinel fall back to case-insensitive substring patterns.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

// ErrAttemptTimeout is returned when one job attempt exceeds its budget.
// It lives here so both the job wrapper and the message table can use it.
var ErrAttemptTimeout = errors.New("import attempt timed out")

// Upload-side errors surfaced by the web layer.
var (
	ErrNoFile           = errors.New("no file provided")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrQueueUnavailable = errors.New("job queue unavailable")
	ErrTooManyUploads   = errors.New("too many concurrent uploads")
)

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrFileNotFound, UserMessage{"The import file could not be found", "Upload the file again", "FILE001"}},
	{ErrEmptyFile, UserMessage{"The uploaded file is empty", "Upload a CSV file with a header and data rows", "FILE002"}},
	{ErrFileTooLarge, UserMessage{"The file exceeds the maximum size", "Split the file into smaller parts", "FILE003"}},
	{ErrNoFile, UserMessage{"No file was sent", "Attach a CSV file in the \"file\" field", "FILE004"}},
	{ErrUnsupportedFile, UserMessage{"Only .csv and .txt files are accepted", "Export the spreadsheet as CSV", "FILE005"}},
	{ErrMissingHeaders, UserMessage{"Required columns are missing", "The header must contain name, email, cpf, city and state", "VAL004"}},
	{ErrConstraintViolation, UserMessage{"An employee with this email or CPF already exists", "Remove duplicated rows and try again", "DB001"}},
	{ErrOwnerNotFound, UserMessage{"The user who started the import no longer exists", "Sign in again and restart the import", "USR001"}},
	{ErrAttemptTimeout, UserMessage{"Processing took too long", "Split the file into smaller parts", "JOB001"}},
	{context.DeadlineExceeded, UserMessage{"Processing took too long", "Split the file into smaller parts", "JOB001"}},
	{ErrQueueUnavailable, UserMessage{"The import could not be scheduled", "Please try again in a few moments", "JOB002"}},
	{ErrTooManyUploads, UserMessage{"Too many uploads are in progress", "Please try again in a few moments", "UPL001"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are checked in order; specific patterns come first.
var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{"An employee with this email or CPF already exists", "Remove duplicated rows and try again", "DB001"}},
	{"violates unique", UserMessage{"An employee with this email or CPF already exists", "Remove duplicated rows and try again", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
