package core

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Typed errors below match them with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrMissingResource = errors.New("missing resource")
	ErrFieldAccess     = errors.New("field access failed")
	ErrTransport       = errors.New("transport failure")
)

// GenericFailureMessage is what end users see for anything that is not a
// validation failure.
const GenericFailureMessage = "処理中にエラーが発生しました。管理者にご連絡ください。"

// ValidationError carries remediation hints meant for the end user.
type ValidationError struct {
	Message string
	Hints   []string
}

func (e *ValidationError) Error() string {
	if len(e.Hints) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Hints, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UserMessage renders the message and hints as shown to users.
func (e *ValidationError) UserMessage() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Hints) > 0 {
		b.WriteString("\n以下の条件を確認してください：")
		for _, h := range e.Hints {
			b.WriteString("\n・")
			b.WriteString(h)
		}
	}
	return b.String()
}

// NoRecordsError is returned when a report query matches nothing.
func NoRecordsError(partyLabel, laborField string) *ValidationError {
	return &ValidationError{
		Message: "指定された期間内に該当するデータがありません。",
		Hints: []string{
			partyLabel,
			"作業日（開始日～終了日）",
			"取引種別",
			laborField + "が0以外",
		},
	}
}

// MissingResourceError reports a template record or attachment that does
// not exist.
type MissingResourceError struct {
	Resource string
	ID       string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *MissingResourceError) Is(target error) bool { return target == ErrMissingResource }

// FieldError reports a record that lacks a required field or holds a value
// that cannot be read.
type FieldError struct {
	Record string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("record %q: field %q", e.Record, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Is(target error) bool { return target == ErrFieldAccess }

// TransportError reports a non-success response from a remote store.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return e.Op
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// UserMessage returns the message safe to show to end users for err.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.UserMessage()
	}
	return GenericFailureMessage
}
