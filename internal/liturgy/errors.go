package liturgy

import "fmt"

// ErrorCode is a stable, machine-readable error kind.
type ErrorCode string

const (
	CodeInvalidDate     ErrorCode = "INVALID_DATE"
	CodeInvalidRite     ErrorCode = "INVALID_RITE"
	CodeDataLoadFailure ErrorCode = "DATA_LOAD_FAILURE"
	CodeDataIntegrity   ErrorCode = "DATA_INTEGRITY"
)

// Error is a coded engine error. Two errors match under errors.Is when their
// codes are equal, so the sentinels below can be used as kinds:
//
//	if errors.Is(err, liturgy.ErrInvalidDate) { ... }
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidDate     = &Error{Code: CodeInvalidDate}
	ErrInvalidRite     = &Error{Code: CodeInvalidRite}
	ErrDataLoadFailure = &Error{Code: CodeDataLoadFailure}
	ErrDataIntegrity   = &Error{Code: CodeDataIntegrity}
)

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Warning is a non-fatal data-integrity finding attached to a result.
type Warning struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	EntryIDs []string  `json:"entry_ids,omitempty"`
}
