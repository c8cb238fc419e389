package borrowing

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeEmptyRequest         Code = "EMPTY_REQUEST"
	CodeTooManyBooks         Code = "TOO_MANY_BOOKS"
	CodeDuplicateBook        Code = "DUPLICATE_BOOK"
	CodeMonthlyQuotaExceeded Code = "MONTHLY_QUOTA_EXCEEDED"
	CodeBookUnavailable      Code = "BOOK_UNAVAILABLE"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeBookNotFound         Code = "BOOK_NOT_FOUND"
	CodeRequestNotFound      Code = "REQUEST_NOT_FOUND"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeInternal             Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Is: コードが同じなら同じエラーとみなす（メッセージは問わない）
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

func newErr(code Code, format string, args ...any) *APIError {
	return &APIError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrEmptyRequest         = &APIError{Code: CodeEmptyRequest, Message: "at least one book is required"}
	ErrTooManyBooks         = &APIError{Code: CodeTooManyBooks, Message: "too many books in one request"}
	ErrDuplicateBook        = &APIError{Code: CodeDuplicateBook, Message: "book requested more than once"}
	ErrMonthlyQuotaExceeded = &APIError{Code: CodeMonthlyQuotaExceeded, Message: "monthly request limit reached"}
	ErrBookUnavailable      = &APIError{Code: CodeBookUnavailable, Message: "book is not available"}
	ErrInvalidTransition    = &APIError{Code: CodeInvalidTransition, Message: "request is not waiting"}
	ErrBookNotFound         = &APIError{Code: CodeBookNotFound, Message: "book not found"}
	ErrRequestNotFound      = &APIError{Code: CodeRequestNotFound, Message: "request not found"}
	ErrUserNotFound         = &APIError{Code: CodeUserNotFound, Message: "user not found"}
)

func ErrInvalid(msg string) *APIError { return &APIError{Code: CodeInvalidArgument, Message: msg} }

func ErrInvalidTransitionf(format string, args ...any) *APIError {
	return newErr(CodeInvalidTransition, format, args...)
}

// CodeOf: APIError 以外は INTERNAL
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeEmptyRequest, CodeTooManyBooks, CodeDuplicateBook, CodeMonthlyQuotaExceeded,
		CodeBookUnavailable, CodeInvalidTransition, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeBookNotFound, CodeRequestNotFound, CodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
