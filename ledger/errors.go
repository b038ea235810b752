package ledger

import (
	"errors"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrPermission   = errors.New("permission denied")
	ErrInvalidState = errors.New("invalid state")
)

// RejectionError 帶有可以直接顯示給使用者的訊息
type RejectionError struct {
	Kind    error
	Message string
}

func (e *RejectionError) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

func reject(kind error, message string) error {
	return &RejectionError{Kind: kind, Message: message}
}

// Message 取出錯誤中給使用者看的訊息
func Message(err error) (string, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Message, true
	}
	return "", false
}
