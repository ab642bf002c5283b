package contract

import "errors"

var (
	ErrConfig            = errors.New("configuration invalid")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrSchemaViolation   = errors.New("model response violates schema")
	ErrPromptMissing     = errors.New("required prompt is missing")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("event not allowed in current step")
	ErrSubmission        = errors.New("submission log write failed")
	ErrRender            = errors.New("application render failed")
	ErrNotReady          = errors.New("application is not submitted yet")
)
