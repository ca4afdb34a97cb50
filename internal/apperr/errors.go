// Package apperr defines the caller-facing error taxonomy.
//
// Every error the messaging core hands back is either one of these coded
// errors (mapped to a 4xx upstream) or an unclassified internal failure
// wrapped with %w, which the boundary surfaces as-is. The core never
// retries: an append is not safe to replay blindly, a retry could
// duplicate the message.
package apperr

import "errors"

// Code classifies an error for HTTP mapping at the boundary.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeAccessDenied Code = "access_denied"
	CodeValidation   Code = "validation"
	CodeInternal     Code = "internal"
)

// Error is a coded, machine-readable failure. Reason is the stable
// identifier clients switch on; Message is for humans.
type Error struct {
	Code    Code
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a coded error. Prefer the predefined vars below; New is for
// reasons that carry dynamic context.
func New(code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

var (
	ErrConversationNotFound = New(CodeNotFound, "CONVERSATION_NOT_FOUND", "conversation not found")
	ErrMessageNotFound      = New(CodeNotFound, "MESSAGE_NOT_FOUND", "message not found")
	ErrPatientNotFound      = New(CodeNotFound, "PATIENT_NOT_FOUND", "patient not found")
	ErrUserNotFound         = New(CodeNotFound, "USER_NOT_FOUND", "user account not found")
	ErrClinicNotFound       = New(CodeNotFound, "CLINIC_NOT_FOUND", "no clinic could be determined for this patient")
	ErrStaffNotFound        = New(CodeNotFound, "STAFF_NOT_FOUND", "staff member not found")

	ErrAccessDenied = New(CodeAccessDenied, "ACCESS_DENIED", "you do not have access to this resource")

	ErrPatientNameRequired = New(CodeValidation, "PATIENT_NAME_REQUIRED", "a patient name could not be derived from the account")
	ErrClinicIDRequired    = New(CodeValidation, "CLINIC_ID_REQUIRED", "a clinic id is required for staff senders")
	ErrPatientIDRequired   = New(CodeValidation, "PATIENT_ID_REQUIRED", "a patient id is required to start a conversation")
	ErrMessageBodyRequired = New(CodeValidation, "MESSAGE_BODY_REQUIRED", "a message needs text content or an image")
	ErrInvalidImagePath    = New(CodeValidation, "INVALID_IMAGE_PATH", "image path must be a relative upload path")
)

// CodeOf extracts the classification from any error in the chain.
// Unclassified errors (persistence failures and the like) report
// CodeInternal — they propagate unmodified to the boundary.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ReasonOf extracts the stable reason string, or "" for unclassified errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
