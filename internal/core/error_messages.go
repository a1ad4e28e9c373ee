package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Typed errors are matched with errors.Is first; anything
// else falls back to case-insensitive substring patterns.
//
// # Store Errors (STO001-STO099)
//
//	STO001 - Open: the local database could not be opened
//	STO002 - Upgrade: the schema upgrade failed
//	STO003 - Transaction: a write did not commit
//	STO004 - Key conflict: a record with this id already exists
//	STO005 - Missing collection: the record collection does not exist
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - File could not be read
//	FILE003 - File is not a readable spreadsheet
//	FILE004 - No file was provided
//	FILE005 - Unsupported file type
//	FILE006 - Encoding error
//
// # Export, Editor and Client Errors
//
//	EXP001 - Nothing to export
//	EDT001 - Dataset not loaded
//	EDT002 - Row does not exist
//	CLI001 - Client not found
//	SHT001 - Sheet not found
//	REQ001 - Request body or parameters are invalid
//
// # Request Errors (UPL001-UPL099)
//
//	UPL002 - Busy: another operation is running
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	RATE001 - Rate limited
//
// ERR000 is the fallback; check the logs for the technical error.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

var (
	// ErrFileRead is returned when the input could not be read.
	ErrFileRead = errors.New("failed to read the file")

	// ErrFileTooLarge is returned when the input exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when a request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrBusy is returned when a surface has no free slot.
	ErrBusy = errors.New("too many operations in progress, please try again later")

	// ErrNotReady is returned by editor mutations before a dataset is loaded.
	ErrNotReady = errors.New("dataset not loaded")

	// ErrRowOutOfRange is returned when editing a row that does not exist.
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrClientNotFound is returned for an unknown client id.
	ErrClientNotFound = errors.New("client not found")

	// ErrSheetNotFound is returned for an unknown sheet name.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrInvalidRequest is returned for malformed request input.
	ErrInvalidRequest = errors.New("invalid request")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order. A transaction failure wraps the error
// that aborted it, so ErrTransaction comes after every more specific kind.
var errorKinds = []errorKind{
	{store.ErrKeyConflict, UserMessage{"A record with this id already exists", "Rename the duplicate sheet or row and import again", "STO004"}},
	{store.ErrMissingCollection, UserMessage{"The data store is incomplete", "Reset the store and import again", "STO005"}},
	{store.ErrUpgrade, UserMessage{"The data store could not be upgraded", "Reset the store and try again", "STO002"}},
	{store.ErrOpen, UserMessage{"The data store could not be opened", "Check the store path and permissions", "STO001"}},
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum size limit", "Split the workbook into smaller files", "FILE001"}},
	{ErrFileRead, UserMessage{"The file could not be read", "Select the file again", "FILE002"}},
	{tabular.ErrDecode, UserMessage{"The file is not a readable spreadsheet", "Save it as .xlsx or .csv and try again", "FILE003"}},
	{ErrNoFile, UserMessage{"No file was selected", "Please select a file to import", "FILE004"}},
	{tabular.ErrUnsupportedFormat, UserMessage{"This file type is not supported", "Use an .xlsx or .csv file", "FILE005"}},
	{tabular.ErrNothingToExport, UserMessage{"No data available to export", "Load or import data first", "EXP001"}},
	{ErrNotReady, UserMessage{"The dataset is not loaded", "Load the dataset before editing", "EDT001"}},
	{ErrRowOutOfRange, UserMessage{"That row does not exist", "Reload the dataset and try again", "EDT002"}},
	{ErrClientNotFound, UserMessage{"Client not found", "Import the client list again", "CLI001"}},
	{ErrSheetNotFound, UserMessage{"Sheet not found", "Import the workbook again", "SHT001"}},
	{ErrInvalidRequest, UserMessage{"The request is invalid", "Check the submitted values and try again", "REQ001"}},
	{ErrBusy, UserMessage{"Another operation is in progress", "Please wait a moment and try again", "UPL002"}},
	{store.ErrTransaction, UserMessage{"Saving to the data store failed", "Please try again", "STO003"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL005"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches errors that lost their type, e.g. ones that went
// through a text boundary. Matching is case-insensitive via strings.Contains
// and the first match wins.
var errorPatterns = []errorPattern{
	{"unique constraint", UserMessage{"A record with this id already exists", "Rename the duplicate sheet or row and import again", "STO004"}},
	{"database is locked", UserMessage{"The data store is busy", "Please try again", "STO003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "STO001"}},
	{"http: request body too large", UserMessage{"File exceeds the maximum size limit", "Split the workbook into smaller files", "FILE001"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save the file as UTF-8", "FILE006"}},
	{"no such file", UserMessage{"The file could not be read", "Check the path and try again", "FILE002"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// FormatStatusError renders the message a surface shows in its error
// state: a short prefix for the failing step followed by the cause.
func FormatStatusError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, tabular.ErrNothingToExport):
		return "No data available to export"
	case errors.Is(err, ErrFileRead):
		return "Failed to read the file"
	case errors.Is(err, tabular.ErrDecode):
		return "Failed to parse Excel file: " + rootCause(err).Error()
	case errors.Is(err, store.ErrTransaction):
		return "Transaction error: " + err.Error()
	default:
		return FormatUserError(err)
	}
}

func rootCause(err error) error {
	var de *tabular.DecodeError
	if errors.As(err, &de) && de.Err != nil {
		return de.Err
	}
	return err
}

// IsUserFacing reports whether err maps to a specific message rather
// than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
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
