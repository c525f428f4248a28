package domain

import "errors"

var (
	ErrCodeAlreadyUsed     = errors.New("authorization code already used")
	ErrCounterNotIncreased = errors.New("webauthn signature counter did not increase")
	ErrUnknownEventType    = errors.New("unknown event type")
	ErrInvalidClient       = errors.New("invalid client definition")
)
