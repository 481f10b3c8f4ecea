package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a user-recoverable failure class.
type ErrorCode string

const (
	CodeSelectionEmpty          ErrorCode = "selection_empty"
	CodeNoTransferablePages     ErrorCode = "no_transferable_pages"
	CodeSelectionTooLarge       ErrorCode = "selection_too_large"
	CodeSerializationFailure    ErrorCode = "serialization_failure"
	CodeDocumentUnavailable     ErrorCode = "document_unavailable"
	CodeDocumentReadOnly        ErrorCode = "document_read_only"
	CodeDocumentConflicted      ErrorCode = "document_conflicted"
	CodeClipboardPayloadInvalid ErrorCode = "clipboard_payload_invalid"
	CodeInsertionFailure        ErrorCode = "insertion_failure"
)

// userMessages maps each code to the single sentence shown in the UI.
var userMessages = map[ErrorCode]string{
	CodeSelectionEmpty:          "No pages are selected.",
	CodeNoTransferablePages:     "The selected pages are still being scanned and cannot be transferred yet.",
	CodeSelectionTooLarge:       "Too many pages selected; split the selection and try again.",
	CodeSerializationFailure:    "The selected pages could not be copied.",
	CodeDocumentUnavailable:     "The document is not available right now.",
	CodeDocumentReadOnly:        "The document is read-only.",
	CodeDocumentConflicted:      "The document has conflicting changes and must be resolved first.",
	CodeClipboardPayloadInvalid: "There are no pages on the clipboard.",
	CodeInsertionFailure:        "No pages could be inserted into the document.",
}

// Error is a coded, user-presentable error. Message is a single short
// sentence for the UI; the wrapped cause carries the diagnostic detail.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a coded error wrapping an optional cause.
func NewError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Message: userMessages[code], Err: cause}
}

// CodeOf extracts the error code from err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
