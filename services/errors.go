package services

import (
	"errors"
	"fmt"
)

// Code ist eine fachliche Fehlerkategorie, unabhängig von HTTP.
type Code string

const (
	CodeValidation           Code = "validation_failed"
	CodeDuplicate            Code = "duplicate_donor"
	CodeVersionConflict      Code = "version_conflict"
	CodeNotFound             Code = "not_found"
	CodeUnavailable          Code = "unavailable"
	CodeNotConfigured        Code = "not_configured"
	CodeInvalidRecipient     Code = "invalid_recipient"
	CodeConfirmationRequired Code = "confirmation_required"
)

// Error trägt einen stabilen Code, eine Nachricht für die Oberfläche und optional Feldfehler.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is vergleicht über den Code, damit errors.Is(err, &Error{Code: ...}) funktioniert.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func wrapError(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf liefert den Code eines Fehlers oder "" für fremde Fehler.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode prüft, ob err ein Error mit dem Code ist.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
