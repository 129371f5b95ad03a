package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	CodeUnresolvedImport          ErrorCode = "UNRESOLVED_IMPORT"
	CodeUnmatchedUtility          ErrorCode = "UNMATCHED_UTILITY"
	CodeUnsupportedComplexUtility ErrorCode = "UNSUPPORTED_COMPLEX_UTILITY"
	CodeUnknownScreenVariant      ErrorCode = "UNKNOWN_SCREEN_VARIANT"
	CodeNotAScreenVariant         ErrorCode = "NOT_A_SCREEN_VARIANT"
	CodeImportCycle               ErrorCode = "IMPORT_CYCLE"
	CodeSyntaxError               ErrorCode = "SYNTAX_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxFrame     = "frame"
	CtxSpecifier = "specifier"
	CtxToken     = "token"
	CtxImporter  = "importer"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ContextString returns a string context value, or "" when absent.
func (e *DomainError) ContextString(key string) string {
	if e.Context == nil {
		return ""
	}
	s, _ := e.Context[key].(string)
	return s
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Code returns the code of the outermost DomainError, or "" for foreign errors.
func Code(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsUserFacing reports whether err is a per-file compile error that belongs
// on the browser overlay rather than in the process log.
func IsUserFacing(err error) bool {
	switch Code(err) {
	case CodeUnresolvedImport, CodeUnmatchedUtility, CodeUnsupportedComplexUtility,
		CodeUnknownScreenVariant, CodeNotAScreenVariant, CodeImportCycle, CodeSyntaxError:
		return true
	}
	return false
}

func UnresolvedImport(importer, specifier string) error {
	return Newf(CodeUnresolvedImport, "could not resolve %q", specifier).
		WithContext(CtxPath, importer).
		WithContext(CtxSpecifier, specifier)
}

func ImportCycle(from, to string) error {
	return Newf(CodeImportCycle, "import of %s from %s closes a cycle", to, from).
		WithContext(CtxPath, from).
		WithContext(CtxImporter, to)
}
