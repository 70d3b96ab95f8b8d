package share

import "errors"

var (
	ErrNotFound       = errors.New("share: not found")
	ErrExpired        = errors.New("share: expired")
	ErrEmptyPayload   = errors.New("share: empty payload")
	ErrInvalidPayload = errors.New("share: payload is not valid JSON")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }
