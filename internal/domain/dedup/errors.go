package dedup

import "errors"

// Domain-specific errors для dedup domain
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrRunNotFound          = errors.New("run not found")
	ErrInvalidMapping       = errors.New("invalid field mapping")
	ErrRecordNotFound       = errors.New("record not found")
	ErrInvalidRule          = errors.New("invalid rule")
	ErrRuleExists           = errors.New("rule already exists")
	ErrEmptySession         = errors.New("session has no records")
	ErrInvalidBlockingField = errors.New("invalid blocking field")
)
