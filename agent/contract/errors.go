package contract

import "errors"

var (
	ErrModelInvoke   = errors.New("model invoke failed")
	ErrPromptMissing = errors.New("required prompt is missing")
	ErrValidation    = errors.New("validation failed")
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrEmptyQuery    = errors.New("query is empty")
	ErrTransport     = errors.New("transport failed")
	ErrNoNextAgent   = errors.New("no next agent")
)
